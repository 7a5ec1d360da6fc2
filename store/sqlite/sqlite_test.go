package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/geo"
	"github.com/brightpath/shift-engine/notify"
	"github.com/brightpath/shift-engine/store/sqlite"
)

var ctx = context.Background()

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func baseShift(id care.ShiftID) *care.Shift {
	return &care.Shift{
		ID:             id,
		StaffID:        "staff-a",
		ClientID:       "client-1",
		Category:       care.CategoryRespiteCare,
		ScheduledStart: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC),
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch event")
		panic("unreachable")
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

func TestShiftRoundTrip(t *testing.T) {
	store := newTestStore(t)

	clockIn := time.Date(2026, 3, 12, 9, 2, 17, 500000000, time.UTC)
	want := &care.Shift{
		ID:             "ride-1",
		StaffID:        "staff-a",
		ClientID:       "client-1",
		Category:       care.CategoryTransportation,
		ScheduledStart: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC),
		ClockIn:        &clockIn,
		Confirmed:      true,
		VisitAddress:   "450 Clinic Way",
		Transport: &care.Transport{
			RideStarted: true,
			DistanceKM:  4.37,
			LastPos:     &geo.Position{Lat: 40.01, Lon: -105.27},
			CurrentPos:  &geo.Position{Lat: 40.02, Lon: -105.28},
			PickupDone:  true,
		},
	}

	require.NoError(t, store.PutShift(ctx, want))

	got, err := store.GetShift(ctx, "ride-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestShiftRoundTrip_NoTransport(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	got, err := store.GetShift(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got.Transport)
	assert.Nil(t, got.ClockIn)
	assert.Nil(t, got.ClockOut)
}

func TestGetShift_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetShift(ctx, "nope")
	assert.ErrorIs(t, err, care.ErrShiftNotFound)
}

func TestPatchShift_TouchesOnlyNamedFields(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	clockIn := time.Date(2026, 3, 12, 9, 5, 0, 0, time.UTC)
	confirmed := true
	err := store.PatchShift(ctx, "s1", care.ShiftPatch{
		ClockIn:   &clockIn,
		Confirmed: &confirmed,
	})
	require.NoError(t, err)

	got, err := store.GetShift(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got.ClockIn)
	assert.True(t, got.ClockIn.Equal(clockIn))
	assert.True(t, got.Confirmed)
	assert.Equal(t, care.StaffID("staff-a"), got.StaffID)
	assert.False(t, got.Locked)
	assert.Nil(t, got.ClockOut)
}

func TestPatchShift_Missing(t *testing.T) {
	store := newTestStore(t)

	locked := true
	err := store.PatchShift(ctx, "nope", care.ShiftPatch{Locked: &locked})
	assert.ErrorIs(t, err, care.ErrShiftNotFound)
}

func TestPatchShift_WaypointFlagsAreMonotonic(t *testing.T) {
	store := newTestStore(t)
	sh := baseShift("ride-1")
	sh.Category = care.CategoryTransportation
	sh.Transport = &care.Transport{RideStarted: true, PickupDone: true}
	require.NoError(t, store.PutShift(ctx, sh))

	// A false write without Reset is dropped.
	off := false
	err := store.PatchShift(ctx, "ride-1", care.ShiftPatch{
		Transport: &care.TransportPatch{PickupDone: &off},
	})
	require.NoError(t, err)

	got, err := store.GetShift(ctx, "ride-1")
	require.NoError(t, err)
	assert.True(t, got.Transport.PickupDone)

	// Reset clears the whole sub-record.
	err = store.PatchShift(ctx, "ride-1", care.ShiftPatch{
		Transport: &care.TransportPatch{Reset: true},
	})
	require.NoError(t, err)

	got, err = store.GetShift(ctx, "ride-1")
	require.NoError(t, err)
	assert.False(t, got.Transport.PickupDone)
	assert.False(t, got.Transport.RideStarted)
	assert.Zero(t, got.Transport.DistanceKM)
}

func TestListShifts_OrderedByScheduledStart(t *testing.T) {
	store := newTestStore(t)

	late := baseShift("s-late")
	late.ScheduledStart = late.ScheduledStart.Add(4 * time.Hour)
	require.NoError(t, store.PutShift(ctx, late))
	require.NoError(t, store.PutShift(ctx, baseShift("s-early")))

	shifts, err := store.ListShifts(ctx)
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	assert.Equal(t, care.ShiftID("s-early"), shifts[0].ID)
	assert.Equal(t, care.ShiftID("s-late"), shifts[1].ID)
}

// =============================================================================
// TRANSFER / LEAVE REQUESTS
// =============================================================================

func TestTransferLifecycle(t *testing.T) {
	store := newTestStore(t)

	r := &care.TransferRequest{
		ID:            "tr-1",
		ShiftID:       "s1",
		FromStaffID:   "staff-a",
		FromStaffName: "Alice Ngo",
		ToStaffID:     "staff-b",
		ToStaffName:   "Bob Reiner",
		Reason:        "family emergency",
		Status:        care.TransferPending,
		CreatedAt:     time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveTransfer(ctx, r))

	got, err := store.GetTransfer(ctx, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	pending, err := store.ListPendingTransfers(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, care.TransferID("tr-1"), pending[0].ID)

	// Saving the resolved record upserts in place and drops it from the
	// pending list.
	resolvedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r.Status = care.TransferApproved
	r.ResolutionNote = "covered"
	r.ResolvedAt = &resolvedAt
	require.NoError(t, store.SaveTransfer(ctx, r))

	got, err = store.GetTransfer(ctx, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, care.TransferApproved, got.Status)
	assert.Equal(t, "covered", got.ResolutionNote)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(resolvedAt))

	pending, err = store.ListPendingTransfers(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetTransfer_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTransfer(ctx, "nope")
	assert.ErrorIs(t, err, care.ErrTransferNotFound)
}

func TestLeaveLifecycle(t *testing.T) {
	store := newTestStore(t)

	r := &care.LeaveRequest{
		ID:            "lv-1",
		RequesterID:   "staff-c",
		RequesterName: "Carol Diaz",
		Type:          care.LeaveSick,
		Reason:        "flu",
		StartDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
		Status:        care.LeavePending,
		CreatedAt:     time.Date(2026, 3, 28, 14, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveLeave(ctx, r))

	got, err := store.GetLeave(ctx, "lv-1")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	pending, err := store.ListPendingLeaves(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	r.Status = care.LeaveDeclined
	r.ResolutionNote = "short-staffed that week"
	resolvedAt := time.Date(2026, 3, 28, 16, 0, 0, 0, time.UTC)
	r.ResolvedAt = &resolvedAt
	require.NoError(t, store.SaveLeave(ctx, r))

	pending, err = store.ListPendingLeaves(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err = store.GetLeave(ctx, "lv-1")
	require.NoError(t, err)
	assert.Equal(t, care.LeaveDeclined, got.Status)
}

func TestGetLeave_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetLeave(ctx, "nope")
	assert.ErrorIs(t, err, care.ErrLeaveNotFound)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestNotifications_NewestFirstPerRecipient(t *testing.T) {
	store := newTestStore(t)

	first := notify.NewInfo("staff-a", "admin", "first", "", nil)
	second := notify.NewInfo("staff-a", "admin", "second", "", nil)
	other := notify.NewInfo("staff-b", "admin", "other mailbox", "", nil)
	require.NoError(t, store.AddNotification(ctx, first))
	require.NoError(t, store.AddNotification(ctx, second))
	require.NoError(t, store.AddNotification(ctx, other))

	list, err := store.ListNotifications(ctx, "staff-a", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}

func TestNotifications_MetaRoundTrip(t *testing.T) {
	store := newTestStore(t)

	n := notify.NewRequest("staff-b", "staff-a", "Take my shift?", "please",
		care.TransferMeta{TransferID: "tr-1", ShiftID: "s1"})
	require.NoError(t, store.AddNotification(ctx, n))

	got, err := store.GetNotification(ctx, "staff-b", n.ID)
	require.NoError(t, err)
	assert.Equal(t, care.NotificationRequest, got.Type)
	assert.Equal(t, care.TransferMeta{TransferID: "tr-1", ShiftID: "s1"}, got.Meta)
}

func TestMarkNotificationRead(t *testing.T) {
	store := newTestStore(t)

	n := notify.NewInfo("staff-a", "admin", "t", "m", nil)
	require.NoError(t, store.AddNotification(ctx, n))
	require.NoError(t, store.MarkNotificationRead(ctx, "staff-a", n.ID))

	unread, err := store.ListNotifications(ctx, "staff-a", true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// Marking an already-read notification is a harmless no-op.
	require.NoError(t, store.MarkNotificationRead(ctx, "staff-a", n.ID))

	err = store.MarkNotificationRead(ctx, "staff-a", "ghost")
	assert.ErrorIs(t, err, care.ErrNotificationNotFound)
}

func TestResolveRequestNotifications_RequestRowsOnly(t *testing.T) {
	store := newTestStore(t)

	meta := care.TransferMeta{TransferID: "tr-1", ShiftID: "s1"}
	req := notify.NewRequest("staff-b", "staff-a", "Take my shift?", "", meta)
	info := notify.NewInfo("admin", "staff-a", "Transfer requested", "", meta)
	require.NoError(t, store.AddNotification(ctx, req))
	require.NoError(t, store.AddNotification(ctx, info))

	err := store.ResolveRequestNotifications(ctx, care.KindShiftTransfer, "tr-1", "approved")
	require.NoError(t, err)

	got, err := store.GetNotification(ctx, "staff-b", req.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Resolution)

	// Announcements referencing the same request are left untouched.
	got, err = store.GetNotification(ctx, "admin", info.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Resolution)

	// The first resolution sticks.
	err = store.ResolveRequestNotifications(ctx, care.KindShiftTransfer, "tr-1", "rejected")
	require.NoError(t, err)
	got, err = store.GetNotification(ctx, "staff-b", req.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Resolution)
}

// =============================================================================
// WATCHES
// =============================================================================

func TestWatchShift_EmitsCommittedState(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	ch, cancel, err := store.WatchShift(ctx, "s1")
	require.NoError(t, err)
	defer cancel()

	clockIn := time.Date(2026, 3, 12, 9, 1, 0, 0, time.UTC)
	require.NoError(t, store.PatchShift(ctx, "s1", care.ShiftPatch{ClockIn: &clockIn}))

	got := recv(t, ch)
	require.NotNil(t, got.ClockIn)
	assert.True(t, got.ClockIn.Equal(clockIn))
}

func TestWatchShift_UnknownShift(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.WatchShift(ctx, "nope")
	assert.ErrorIs(t, err, care.ErrShiftNotFound)
}

func TestWatchUnread_EmitsOnAddAndMarkRead(t *testing.T) {
	store := newTestStore(t)

	ch, cancel, err := store.WatchUnread(ctx, "staff-a")
	require.NoError(t, err)
	defer cancel()

	n := notify.NewInfo("staff-a", "admin", "t", "m", nil)
	require.NoError(t, store.AddNotification(ctx, n))
	unread := recv(t, ch)
	require.Len(t, unread, 1)
	assert.Equal(t, n.ID, unread[0].ID)

	require.NoError(t, store.MarkNotificationRead(ctx, "staff-a", n.ID))
	unread = recv(t, ch)
	assert.Empty(t, unread)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_CommitAppliesAllWrites(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	staffB := care.StaffID("staff-b")
	err := store.WithTx(ctx, func(s care.Stores) error {
		if err := s.PatchShift(ctx, "s1", care.ShiftPatch{StaffID: &staffB}); err != nil {
			return err
		}
		if err := s.SaveTransfer(ctx, &care.TransferRequest{
			ID: "tr-1", ShiftID: "s1",
			FromStaffID: "staff-a", FromStaffName: "Alice Ngo",
			ToStaffID: "staff-b", ToStaffName: "Bob Reiner",
			Status: care.TransferApproved, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return s.AddNotification(ctx, notify.NewInfo("staff-a", "admin", "Shift reassigned", "", nil))
	})
	require.NoError(t, err)

	sh, err := store.GetShift(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, staffB, sh.StaffID)

	_, err = store.GetTransfer(ctx, "tr-1")
	assert.NoError(t, err)

	list, err := store.ListNotifications(ctx, "staff-a", false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	locked := true
	err := store.WithTx(ctx, func(s care.Stores) error {
		if err := s.PatchShift(ctx, "s1", care.ShiftPatch{Locked: &locked}); err != nil {
			return err
		}
		sh, err := s.GetShift(ctx, "s1")
		if err != nil {
			return err
		}
		if !sh.Locked {
			return errors.New("expected in-flight write to be visible")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestWithTx_ErrorRollsBackEverything(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	boom := errors.New("boom")
	staffB := care.StaffID("staff-b")
	err := store.WithTx(ctx, func(s care.Stores) error {
		if err := s.PatchShift(ctx, "s1", care.ShiftPatch{StaffID: &staffB}); err != nil {
			return err
		}
		if err := s.SaveLeave(ctx, &care.LeaveRequest{
			ID: "lv-1", RequesterID: "staff-c", RequesterName: "Carol Diaz",
			Type: care.LeaveAnnual, Reason: "pto",
			StartDate: time.Now().UTC(), EndDate: time.Now().UTC().Add(24 * time.Hour),
			Status: care.LeavePending, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := s.AddNotification(ctx, notify.NewInfo("staff-a", "admin", "t", "m", nil)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	sh, err := store.GetShift(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, care.StaffID("staff-a"), sh.StaffID)

	_, err = store.GetLeave(ctx, "lv-1")
	assert.ErrorIs(t, err, care.ErrLeaveNotFound)

	list, err := store.ListNotifications(ctx, "staff-a", false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWithTx_NoWatchEventOnRollback(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	ch, cancel, err := store.WatchShift(ctx, "s1")
	require.NoError(t, err)
	defer cancel()

	locked := true
	boom := errors.New("boom")
	err = store.WithTx(ctx, func(s care.Stores) error {
		if err := s.PatchShift(ctx, "s1", care.ShiftPatch{Locked: &locked}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	select {
	case got := <-ch:
		t.Fatalf("unexpected watch event after rollback: %+v", got)
	default:
	}
}

func TestWithTx_WatchRejected(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutShift(ctx, baseShift("s1")))

	err := store.WithTx(ctx, func(s care.Stores) error {
		_, _, err := s.WatchShift(ctx, "s1")
		return err
	})
	require.Error(t, err)

	err = store.WithTx(ctx, func(s care.Stores) error {
		_, _, err := s.WatchUnread(ctx, "staff-a")
		return err
	})
	require.Error(t, err)
}
