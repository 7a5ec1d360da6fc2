/*
Package transfer runs the shift ownership transfer workflow.

PURPOSE:
  A staff member offers one of their shifts to a peer; the peer approves
  or rejects. The full lifecycle:

  Request ──▶ pending ──▶ Approve ──▶ approved  + shift owner reassigned
                      └─▶ Reject  ──▶ rejected  (shift untouched)

IDEMPOTENCY:
  Approve/Reject on a non-pending request is a benign no-op: the call
  returns the current record and applies nothing. Duplicate UI clicks and
  duplicate notification deliveries are guarded by this status check, not
  by disabling buttons - disabling does not stop network-level retries.

ATOMICITY:
  Approval touches three documents: the shift's staff field, the request
  status, and the mailbox. They commit in one store transaction; a crash
  between steps must never leave the shift reassigned while the request
  stays pending.

EXAMPLE:
  wf := transfer.NewWorkflow(store, "admin")
  req, err := wf.Request(ctx, "shift-1", fromRef, toRef, "illness")
  _, err = wf.Approve(ctx, req.ID)

SEE ALSO:
  - care/requests.go: record + status set
  - leave/workflow.go: the structurally parallel time-off flow
*/
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/notify"
	"github.com/google/uuid"
)

// Workflow coordinates transfer requests against the document store.
type Workflow struct {
	store care.TxStore

	// AdminID receives the info copy of every transfer event.
	AdminID care.StaffID
}

func NewWorkflow(store care.TxStore, admin care.StaffID) *Workflow {
	return &Workflow{store: store, AdminID: admin}
}

// Request creates a pending transfer and notifies the target staff
// (action) and the administrator (info). The shift itself is untouched
// until approval.
func (w *Workflow) Request(ctx context.Context, shiftID care.ShiftID, from, to care.StaffRef, reason string) (*care.TransferRequest, error) {
	if to.ID == "" {
		return nil, &care.UserInputError{Field: "target staff", Message: "must be selected"}
	}
	if to.ID == from.ID {
		return nil, &care.UserInputError{Field: "target staff", Message: "cannot transfer a shift to yourself"}
	}

	// Missing shift is fatal before anything is written.
	if _, err := w.store.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}

	req := &care.TransferRequest{
		ID:            care.TransferID(uuid.NewString()),
		ShiftID:       shiftID,
		FromStaffID:   from.ID,
		FromStaffName: from.Name,
		ToStaffID:     to.ID,
		ToStaffName:   to.Name,
		Reason:        reason,
		Status:        care.TransferPending,
		CreatedAt:     time.Now().UTC(),
	}

	meta := care.TransferMeta{TransferID: req.ID, ShiftID: shiftID}
	err := w.store.WithTx(ctx, func(s care.Stores) error {
		if err := s.SaveTransfer(ctx, req); err != nil {
			return err
		}
		if err := s.AddNotification(ctx, notify.NewRequest(
			to.ID, from.ID,
			"Shift transfer request",
			fmt.Sprintf("%s asked you to take over a shift: %s", from.Name, reason),
			meta,
		)); err != nil {
			return err
		}
		return s.AddNotification(ctx, notify.NewInfo(
			w.AdminID, from.ID,
			"Shift transfer requested",
			fmt.Sprintf("%s requested a transfer to %s", from.Name, to.Name),
			meta,
		))
	})
	if err != nil {
		return nil, fmt.Errorf("create transfer request: %w", err)
	}
	return req, nil
}

// Approve reassigns the shift to the target staff and terminates the
// request. Non-pending requests are a no-op: the current record comes
// back with no effects re-applied and no extra notifications.
func (w *Workflow) Approve(ctx context.Context, id care.TransferID) (*care.TransferRequest, error) {
	var out *care.TransferRequest
	err := w.store.WithTx(ctx, func(s care.Stores) error {
		req, err := s.GetTransfer(ctx, id)
		if err != nil {
			return err
		}
		if req.Resolved() {
			out = req
			return nil
		}

		now := time.Now().UTC()
		req.Status = care.TransferApproved
		req.ResolvedAt = &now

		if err := s.PatchShift(ctx, req.ShiftID, care.ShiftPatch{StaffID: &req.ToStaffID}); err != nil {
			return err
		}
		if err := s.SaveTransfer(ctx, req); err != nil {
			return err
		}
		if err := s.ResolveRequestNotifications(ctx, care.KindShiftTransfer, string(id), string(care.TransferApproved)); err != nil {
			return err
		}
		if err := s.AddNotification(ctx, notify.NewInfo(
			req.FromStaffID, req.ToStaffID,
			"Transfer approved",
			fmt.Sprintf("%s accepted your shift transfer", req.ToStaffName),
			care.TransferMeta{TransferID: req.ID, ShiftID: req.ShiftID},
		)); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("approve transfer %s: %w", id, err)
	}
	return out, nil
}

// Reject terminates the request without touching the shift. Same
// idempotency guard as Approve.
func (w *Workflow) Reject(ctx context.Context, id care.TransferID, reason string) (*care.TransferRequest, error) {
	var out *care.TransferRequest
	err := w.store.WithTx(ctx, func(s care.Stores) error {
		req, err := s.GetTransfer(ctx, id)
		if err != nil {
			return err
		}
		if req.Resolved() {
			out = req
			return nil
		}

		now := time.Now().UTC()
		req.Status = care.TransferRejected
		req.ResolvedAt = &now
		req.ResolutionNote = reason

		if err := s.SaveTransfer(ctx, req); err != nil {
			return err
		}
		if err := s.ResolveRequestNotifications(ctx, care.KindShiftTransfer, string(id), string(care.TransferRejected)); err != nil {
			return err
		}
		if err := s.AddNotification(ctx, notify.NewInfo(
			req.FromStaffID, req.ToStaffID,
			"Transfer rejected",
			fmt.Sprintf("%s declined your shift transfer", req.ToStaffName),
			care.TransferMeta{TransferID: req.ID, ShiftID: req.ShiftID},
		)); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reject transfer %s: %w", id, err)
	}
	return out, nil
}

// Pending lists unresolved transfer requests, oldest first.
func (w *Workflow) Pending(ctx context.Context) ([]care.TransferRequest, error) {
	return w.store.ListPendingTransfers(ctx)
}
