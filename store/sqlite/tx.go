package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/brightpath/shift-engine/care"
)

// =============================================================================
// TRANSACTIONS - sql.Tx with post-commit watch flush
// =============================================================================

var errTxWatch = errors.New("watch inside a transaction is not supported")

// WithTx runs fn against a transactional view of every collection.
// All-or-nothing: an error from fn rolls the sql transaction back and no
// watch event fires. Events collected during fn flush after commit, so
// subscribers only ever observe committed state.
func (s *Store) WithTx(ctx context.Context, fn func(care.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	view := &txView{tx: tx, shifts: make(map[care.ShiftID]bool), recipients: make(map[care.StaffID]bool)}
	if err := fn(view); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for id := range view.shifts {
		s.notifyShift(ctx, id)
	}
	for r := range view.recipients {
		s.notifyMailbox(ctx, r)
	}
	return nil
}

// txView implements care.Stores over one sql.Tx, recording which
// documents changed for the post-commit watch flush.
type txView struct {
	tx         querier
	shifts     map[care.ShiftID]bool
	recipients map[care.StaffID]bool
}

func (v *txView) GetShift(ctx context.Context, id care.ShiftID) (*care.Shift, error) {
	return getShift(ctx, v.tx, id)
}

func (v *txView) PutShift(ctx context.Context, sh *care.Shift) error {
	if err := putShift(ctx, v.tx, sh); err != nil {
		return err
	}
	v.shifts[sh.ID] = true
	return nil
}

func (v *txView) PatchShift(ctx context.Context, id care.ShiftID, p care.ShiftPatch) error {
	if err := patchShift(ctx, v.tx, id, p); err != nil {
		return err
	}
	v.shifts[id] = true
	return nil
}

func (v *txView) ListShifts(ctx context.Context) ([]care.Shift, error) {
	return listShifts(ctx, v.tx)
}

func (v *txView) WatchShift(context.Context, care.ShiftID) (<-chan care.Shift, care.CancelFunc, error) {
	return nil, nil, errTxWatch
}

func (v *txView) SaveTransfer(ctx context.Context, r *care.TransferRequest) error {
	return saveTransfer(ctx, v.tx, r)
}

func (v *txView) GetTransfer(ctx context.Context, id care.TransferID) (*care.TransferRequest, error) {
	return getTransfer(ctx, v.tx, id)
}

func (v *txView) ListPendingTransfers(ctx context.Context) ([]care.TransferRequest, error) {
	return listPendingTransfers(ctx, v.tx)
}

func (v *txView) SaveLeave(ctx context.Context, r *care.LeaveRequest) error {
	return saveLeave(ctx, v.tx, r)
}

func (v *txView) GetLeave(ctx context.Context, id care.LeaveID) (*care.LeaveRequest, error) {
	return getLeave(ctx, v.tx, id)
}

func (v *txView) ListPendingLeaves(ctx context.Context) ([]care.LeaveRequest, error) {
	return listPendingLeaves(ctx, v.tx)
}

func (v *txView) AddNotification(ctx context.Context, n *care.Notification) error {
	if err := addNotification(ctx, v.tx, n); err != nil {
		return err
	}
	v.recipients[n.RecipientID] = true
	return nil
}

func (v *txView) GetNotification(ctx context.Context, recipient care.StaffID, id care.NotificationID) (*care.Notification, error) {
	return getNotification(ctx, v.tx, recipient, id)
}

func (v *txView) MarkNotificationRead(ctx context.Context, recipient care.StaffID, id care.NotificationID) error {
	if err := markNotificationRead(ctx, v.tx, recipient, id); err != nil {
		return err
	}
	v.recipients[recipient] = true
	return nil
}

func (v *txView) ResolveRequestNotifications(ctx context.Context, kind care.RequestKind, refID, resolution string) error {
	recipients, err := resolveRequestNotifications(ctx, v.tx, kind, refID, resolution)
	if err != nil {
		return err
	}
	for _, r := range recipients {
		v.recipients[r] = true
	}
	return nil
}

func (v *txView) ListNotifications(ctx context.Context, recipient care.StaffID, unreadOnly bool) ([]care.Notification, error) {
	return listNotifications(ctx, v.tx, recipient, unreadOnly)
}

func (v *txView) WatchUnread(context.Context, care.StaffID) (<-chan []care.Notification, care.CancelFunc, error) {
	return nil, nil, errTxWatch
}
