/*
tx.go - Snapshot-rollback transactions for the in-memory store

PURPOSE:
  WithTx deep-copies every collection before running fn. On error the
  snapshot is restored wholesale, so a half-applied multi-document
  mutation leaves no trace. On success, events collected during fn flush
  to subscribers after the lock drops.

SEE ALSO:
  - ../sqlite/tx.go: the sql.Tx equivalent
*/
package memory

import (
	"context"
	"errors"

	"github.com/brightpath/shift-engine/care"
)

var errTxWatch = errors.New("watch inside a transaction is not supported")

type snapshot struct {
	shifts    map[care.ShiftID]*care.Shift
	transfers map[care.TransferID]*care.TransferRequest
	leaves    map[care.LeaveID]*care.LeaveRequest
	notes     map[care.StaffID][]*care.Notification
}

func (s *Store) snapshotLocked() snapshot {
	snap := snapshot{
		shifts:    make(map[care.ShiftID]*care.Shift, len(s.shifts)),
		transfers: make(map[care.TransferID]*care.TransferRequest, len(s.transfers)),
		leaves:    make(map[care.LeaveID]*care.LeaveRequest, len(s.leaves)),
		notes:     make(map[care.StaffID][]*care.Notification, len(s.notes)),
	}
	for id, sh := range s.shifts {
		snap.shifts[id] = sh.Clone()
	}
	for id, r := range s.transfers {
		cp := *r
		snap.transfers[id] = &cp
	}
	for id, r := range s.leaves {
		cp := *r
		snap.leaves[id] = &cp
	}
	for recipient, notes := range s.notes {
		cps := make([]*care.Notification, len(notes))
		for i, n := range notes {
			cp := *n
			cps[i] = &cp
		}
		snap.notes[recipient] = cps
	}
	return snap
}

func (s *Store) restoreLocked(snap snapshot) {
	s.shifts = snap.shifts
	s.transfers = snap.transfers
	s.leaves = snap.leaves
	s.notes = snap.notes
}

// WithTx runs fn against a transactional view. An error restores the
// pre-transaction snapshot and suppresses every queued event.
func (s *Store) WithTx(_ context.Context, fn func(care.Stores) error) error {
	s.mu.Lock()
	snap := s.snapshotLocked()
	ev := newEvents()

	if err := fn(&txView{parent: s, ev: ev}); err != nil {
		s.restoreLocked(snap)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.fire(ev)
	return nil
}

// txView implements care.Stores against a store whose lock WithTx
// already holds, queuing events instead of firing them.
type txView struct {
	parent *Store
	ev     *events
}

func (v *txView) GetShift(_ context.Context, id care.ShiftID) (*care.Shift, error) {
	return v.parent.getShiftLocked(id)
}

func (v *txView) PutShift(_ context.Context, sh *care.Shift) error {
	v.parent.putShiftLocked(sh, v.ev)
	return nil
}

func (v *txView) PatchShift(_ context.Context, id care.ShiftID, p care.ShiftPatch) error {
	return v.parent.patchShiftLocked(id, p, v.ev)
}

func (v *txView) ListShifts(_ context.Context) ([]care.Shift, error) {
	return v.parent.listShiftsLocked(), nil
}

func (v *txView) WatchShift(context.Context, care.ShiftID) (<-chan care.Shift, care.CancelFunc, error) {
	return nil, nil, errTxWatch
}

func (v *txView) SaveTransfer(_ context.Context, r *care.TransferRequest) error {
	v.parent.saveTransferLocked(r)
	return nil
}

func (v *txView) GetTransfer(_ context.Context, id care.TransferID) (*care.TransferRequest, error) {
	return v.parent.getTransferLocked(id)
}

func (v *txView) ListPendingTransfers(_ context.Context) ([]care.TransferRequest, error) {
	return v.parent.listPendingTransfersLocked(), nil
}

func (v *txView) SaveLeave(_ context.Context, r *care.LeaveRequest) error {
	v.parent.saveLeaveLocked(r)
	return nil
}

func (v *txView) GetLeave(_ context.Context, id care.LeaveID) (*care.LeaveRequest, error) {
	return v.parent.getLeaveLocked(id)
}

func (v *txView) ListPendingLeaves(_ context.Context) ([]care.LeaveRequest, error) {
	return v.parent.listPendingLeavesLocked(), nil
}

func (v *txView) AddNotification(_ context.Context, n *care.Notification) error {
	v.parent.addNotificationLocked(n, v.ev)
	return nil
}

func (v *txView) GetNotification(_ context.Context, recipient care.StaffID, id care.NotificationID) (*care.Notification, error) {
	return v.parent.getNotificationLocked(recipient, id)
}

func (v *txView) MarkNotificationRead(_ context.Context, recipient care.StaffID, id care.NotificationID) error {
	return v.parent.markNotificationReadLocked(recipient, id, v.ev)
}

func (v *txView) ResolveRequestNotifications(_ context.Context, kind care.RequestKind, refID, resolution string) error {
	v.parent.resolveRequestNotificationsLocked(kind, refID, resolution, v.ev)
	return nil
}

func (v *txView) ListNotifications(_ context.Context, recipient care.StaffID, unreadOnly bool) ([]care.Notification, error) {
	return v.parent.listNotesLocked(recipient, unreadOnly), nil
}

func (v *txView) WatchUnread(context.Context, care.StaffID) (<-chan []care.Notification, care.CancelFunc, error) {
	return nil, nil, errTxWatch
}
