package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/store/memory"
	"github.com/brightpath/shift-engine/transfer"
)

const adminID = care.StaffID("admin")

var (
	alice = care.StaffRef{ID: "staff-alice", Name: "Alice Ngo"}
	bob   = care.StaffRef{ID: "staff-bob", Name: "Bob Reiner"}
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	err := store.PutShift(context.Background(), &care.Shift{
		ID:             "shift-1",
		StaffID:        alice.ID,
		ClientID:       "client-1",
		Category:       care.CategoryRespiteCare,
		ScheduledStart: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return store
}

// =============================================================================
// REQUEST
// =============================================================================

func TestRequest_CreatesPendingAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	wf := transfer.NewWorkflow(store, adminID)

	req, err := wf.Request(ctx, "shift-1", alice, bob, "double booked")
	require.NoError(t, err)
	assert.Equal(t, care.TransferPending, req.Status)
	assert.NotEmpty(t, req.ID)

	pending, err := wf.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	// Target gets the actionable request.
	inbox, err := store.ListNotifications(ctx, bob.ID, false)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, care.NotificationRequest, inbox[0].Type)
	assert.False(t, inbox[0].Read)
	assert.Empty(t, inbox[0].Resolution)
	meta, ok := inbox[0].Meta.(care.TransferMeta)
	require.True(t, ok, "meta must be the transfer variant")
	assert.Equal(t, req.ID, meta.TransferID)
	assert.Equal(t, care.ShiftID("shift-1"), meta.ShiftID)

	// Admin gets an info copy.
	adminBox, err := store.ListNotifications(ctx, adminID, false)
	require.NoError(t, err)
	require.Len(t, adminBox, 1)
	assert.Equal(t, care.NotificationInfo, adminBox[0].Type)

	// The shift itself is untouched until approval.
	s, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, s.StaffID)
}

func TestRequest_Validation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	wf := transfer.NewWorkflow(store, adminID)

	_, err := wf.Request(ctx, "shift-1", alice, care.StaffRef{}, "x")
	assert.True(t, care.IsUserError(err), "empty target: %v", err)

	_, err = wf.Request(ctx, "shift-1", alice, alice, "x")
	assert.True(t, care.IsUserError(err), "self transfer: %v", err)

	_, err = wf.Request(ctx, "ghost", alice, bob, "x")
	assert.ErrorIs(t, err, care.ErrShiftNotFound)

	// Nothing was written by any rejected request.
	pending, _ := wf.Pending(ctx)
	assert.Empty(t, pending)
	inbox, _ := store.ListNotifications(ctx, bob.ID, false)
	assert.Empty(t, inbox)
}

// =============================================================================
// APPROVE
// =============================================================================

func TestApprove_ReassignsShiftAndResolvesEverywhere(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	wf := transfer.NewWorkflow(store, adminID)

	req, err := wf.Request(ctx, "shift-1", alice, bob, "double booked")
	require.NoError(t, err)

	resolved, err := wf.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, care.TransferApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	// Shift owner changed.
	s, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, s.StaffID)

	// Bob's request notification carries the terminal resolution.
	inbox, err := store.ListNotifications(ctx, bob.ID, false)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "approved", inbox[0].Resolution)

	// Alice hears back.
	aliceBox, err := store.ListNotifications(ctx, alice.ID, false)
	require.NoError(t, err)
	require.Len(t, aliceBox, 1)
	assert.Equal(t, care.NotificationInfo, aliceBox[0].Type)

	pending, _ := wf.Pending(ctx)
	assert.Empty(t, pending)
}

func TestApprove_SecondApprovalIsNoOp(t *testing.T) {
	// GIVEN: an approved transfer
	// WHEN: approve fires again (double click, duplicate delivery)
	// THEN: same outcome, no re-applied effects, no extra notifications

	ctx := context.Background()
	store := newStore(t)
	wf := transfer.NewWorkflow(store, adminID)

	req, err := wf.Request(ctx, "shift-1", alice, bob, "double booked")
	require.NoError(t, err)
	_, err = wf.Approve(ctx, req.ID)
	require.NoError(t, err)

	aliceBefore, _ := store.ListNotifications(ctx, alice.ID, false)

	again, err := wf.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, care.TransferApproved, again.Status)

	aliceAfter, _ := store.ListNotifications(ctx, alice.ID, false)
	assert.Len(t, aliceAfter, len(aliceBefore), "duplicate approval added a notification")

	s, _ := store.GetShift(ctx, "shift-1")
	assert.Equal(t, bob.ID, s.StaffID)
}

func TestReject_LeavesShiftAlone(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	wf := transfer.NewWorkflow(store, adminID)

	req, err := wf.Request(ctx, "shift-1", alice, bob, "double booked")
	require.NoError(t, err)

	resolved, err := wf.Reject(ctx, req.ID, "already committed that day")
	require.NoError(t, err)
	assert.Equal(t, care.TransferRejected, resolved.Status)
	assert.Equal(t, "already committed that day", resolved.ResolutionNote)

	s, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, s.StaffID, "reject must not reassign")

	inbox, _ := store.ListNotifications(ctx, bob.ID, false)
	require.Len(t, inbox, 1)
	assert.Equal(t, "rejected", inbox[0].Resolution)

	// Approve after reject is the same no-op as double approve.
	after, err := wf.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, care.TransferRejected, after.Status)
	s, _ = store.GetShift(ctx, "shift-1")
	assert.Equal(t, alice.ID, s.StaffID)
}

func TestApprove_MissingRequest(t *testing.T) {
	wf := transfer.NewWorkflow(newStore(t), adminID)
	_, err := wf.Approve(context.Background(), "ghost")
	assert.ErrorIs(t, err, care.ErrTransferNotFound)
}

// =============================================================================
// ATOMICITY
// =============================================================================

// faultyTx wraps a TxStore and fails a chosen operation inside the
// transaction, proving that partial approval work rolls back.
type faultyTx struct {
	care.TxStore
	failNotifications bool
}

func (f *faultyTx) WithTx(ctx context.Context, fn func(care.Stores) error) error {
	return f.TxStore.WithTx(ctx, func(s care.Stores) error {
		return fn(&faultyStores{Stores: s, failNotifications: f.failNotifications})
	})
}

type faultyStores struct {
	care.Stores
	failNotifications bool
}

func (f *faultyStores) AddNotification(ctx context.Context, n *care.Notification) error {
	if f.failNotifications {
		return errors.New("mailbox write failed")
	}
	return f.Stores.AddNotification(ctx, n)
}

func TestApprove_RollsBackWhenLateStepFails(t *testing.T) {
	// GIVEN: a pending transfer on a store whose mailbox writes fail
	// WHEN: approval runs and its final notification write errors
	// THEN: the shift keeps its owner and the request stays pending

	ctx := context.Background()
	inner := newStore(t)
	wf := transfer.NewWorkflow(inner, adminID)

	req, err := wf.Request(ctx, "shift-1", alice, bob, "double booked")
	require.NoError(t, err)

	broken := transfer.NewWorkflow(&faultyTx{TxStore: inner, failNotifications: true}, adminID)
	_, err = broken.Approve(ctx, req.ID)
	require.Error(t, err)

	s, err := inner.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, s.StaffID, "shift reassigned despite rollback")

	stored, err := inner.GetTransfer(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, care.TransferPending, stored.Status, "request resolved despite rollback")

	inbox, _ := inner.ListNotifications(ctx, bob.ID, false)
	require.Len(t, inbox, 1)
	assert.Empty(t, inbox[0].Resolution, "notification resolved despite rollback")

	// The clean workflow can still finish the job.
	_, err = wf.Approve(ctx, req.ID)
	require.NoError(t, err)
	s, _ = inner.GetShift(ctx, "shift-1")
	assert.Equal(t, bob.ID, s.StaffID)
}
