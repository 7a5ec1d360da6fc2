/*
Package leave runs the time-off request workflow.

PURPOSE:
  Structurally the transfer flow's twin: a staff member files a leave
  request, an administrator approves or declines it. Same pending-only
  resolution guard, same atomic commit of request status plus mailbox,
  no shift involvement at all.

VALIDATION:
  Leave type, reason, and dates are required, and the end date may not
  precede the start. All of it is rejected before any store write.

SEE ALSO:
  - transfer/workflow.go: the parallel flow and its idempotency notes
  - care/requests.go: record + status set
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/notify"
	"github.com/google/uuid"
)

// Workflow coordinates leave requests; an administrator resolves them.
type Workflow struct {
	store care.TxStore

	AdminID care.StaffID
}

func NewWorkflow(store care.TxStore, admin care.StaffID) *Workflow {
	return &Workflow{store: store, AdminID: admin}
}

// Request files a pending leave request and notifies the administrator.
func (w *Workflow) Request(ctx context.Context, requester care.StaffRef, leaveType care.LeaveType, reason string, start, end time.Time) (*care.LeaveRequest, error) {
	if leaveType == "" {
		return nil, &care.UserInputError{Field: "leave type", Message: "is required"}
	}
	if reason == "" {
		return nil, &care.UserInputError{Field: "reason", Message: "is required"}
	}
	if start.IsZero() || end.IsZero() {
		return nil, &care.UserInputError{Field: "dates", Message: "start and end are required"}
	}
	if end.Before(start) {
		return nil, &care.UserInputError{Field: "dates", Message: "end precedes start"}
	}

	req := &care.LeaveRequest{
		ID:            care.LeaveID(uuid.NewString()),
		RequesterID:   requester.ID,
		RequesterName: requester.Name,
		Type:          leaveType,
		Reason:        reason,
		StartDate:     start,
		EndDate:       end,
		Status:        care.LeavePending,
		CreatedAt:     time.Now().UTC(),
	}

	err := w.store.WithTx(ctx, func(s care.Stores) error {
		if err := s.SaveLeave(ctx, req); err != nil {
			return err
		}
		return s.AddNotification(ctx, notify.NewRequest(
			w.AdminID, requester.ID,
			"Leave request",
			fmt.Sprintf("%s requested %s leave: %s", requester.Name, leaveType, reason),
			care.LeaveMeta{LeaveID: req.ID},
		))
	})
	if err != nil {
		return nil, fmt.Errorf("create leave request: %w", err)
	}
	return req, nil
}

// Approve grants the leave. Resolving a non-pending request is a no-op.
func (w *Workflow) Approve(ctx context.Context, id care.LeaveID) (*care.LeaveRequest, error) {
	return w.resolve(ctx, id, care.LeaveApproved, "")
}

// Decline refuses the leave with an optional note. Same guard.
func (w *Workflow) Decline(ctx context.Context, id care.LeaveID, note string) (*care.LeaveRequest, error) {
	return w.resolve(ctx, id, care.LeaveDeclined, note)
}

func (w *Workflow) resolve(ctx context.Context, id care.LeaveID, status care.LeaveStatus, note string) (*care.LeaveRequest, error) {
	var out *care.LeaveRequest
	err := w.store.WithTx(ctx, func(s care.Stores) error {
		req, err := s.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if req.Resolved() {
			out = req
			return nil
		}

		now := time.Now().UTC()
		req.Status = status
		req.ResolvedAt = &now
		req.ResolutionNote = note

		if err := s.SaveLeave(ctx, req); err != nil {
			return err
		}
		if err := s.ResolveRequestNotifications(ctx, care.KindLeave, string(id), string(status)); err != nil {
			return err
		}
		title := "Leave approved"
		msg := fmt.Sprintf("Your %s leave was approved", req.Type)
		if status == care.LeaveDeclined {
			title = "Leave declined"
			msg = fmt.Sprintf("Your %s leave was declined", req.Type)
			if note != "" {
				msg += ": " + note
			}
		}
		if err := s.AddNotification(ctx, notify.NewInfo(
			req.RequesterID, w.AdminID, title, msg,
			care.LeaveMeta{LeaveID: req.ID},
		)); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve leave %s: %w", id, err)
	}
	return out, nil
}

// Pending lists unresolved leave requests, oldest first.
func (w *Workflow) Pending(ctx context.Context) ([]care.LeaveRequest, error) {
	return w.store.ListPendingLeaves(ctx)
}
