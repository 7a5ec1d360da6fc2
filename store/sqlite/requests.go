package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brightpath/shift-engine/care"
)

// =============================================================================
// TRANSFER REQUESTS
// =============================================================================

func (s *Store) SaveTransfer(ctx context.Context, r *care.TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTransfer(ctx, s.db, r)
}

func saveTransfer(ctx context.Context, q querier, r *care.TransferRequest) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transfer_requests
			(id, shift_id, from_staff_id, from_staff_name, to_staff_id, to_staff_name,
			 reason, status, resolution_note, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			resolution_note = excluded.resolution_note,
			resolved_at = excluded.resolved_at`,
		string(r.ID), string(r.ShiftID),
		string(r.FromStaffID), r.FromStaffName, string(r.ToStaffID), r.ToStaffName,
		r.Reason, string(r.Status), r.ResolutionNote,
		fmtTime(r.CreatedAt), fmtTimePtr(r.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("save transfer %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) GetTransfer(ctx context.Context, id care.TransferID) (*care.TransferRequest, error) {
	return getTransfer(ctx, s.db, id)
}

func getTransfer(ctx context.Context, q querier, id care.TransferID) (*care.TransferRequest, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, shift_id, from_staff_id, from_staff_name, to_staff_id, to_staff_name,
		       reason, status, resolution_note, created_at, resolved_at
		FROM transfer_requests WHERE id = ?`, string(id))

	var (
		r          care.TransferRequest
		createdAt  string
		resolvedAt sql.NullString
	)
	err := row.Scan(&r.ID, &r.ShiftID, &r.FromStaffID, &r.FromStaffName,
		&r.ToStaffID, &r.ToStaffName, &r.Reason, &r.Status, &r.ResolutionNote,
		&createdAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, care.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer %s: %w", id, err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.ResolvedAt, err = parseTimePtr(resolvedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListPendingTransfers(ctx context.Context) ([]care.TransferRequest, error) {
	return listPendingTransfers(ctx, s.db)
}

func listPendingTransfers(ctx context.Context, q querier) ([]care.TransferRequest, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, shift_id, from_staff_id, from_staff_name, to_staff_id, to_staff_name,
		       reason, status, resolution_note, created_at, resolved_at
		FROM transfer_requests WHERE status = ? ORDER BY created_at, id`,
		string(care.TransferPending))
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	var out []care.TransferRequest
	for rows.Next() {
		var (
			r          care.TransferRequest
			createdAt  string
			resolvedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ShiftID, &r.FromStaffID, &r.FromStaffName,
			&r.ToStaffID, &r.ToStaffName, &r.Reason, &r.Status, &r.ResolutionNote,
			&createdAt, &resolvedAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.ResolvedAt, err = parseTimePtr(resolvedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (s *Store) SaveLeave(ctx context.Context, r *care.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLeave(ctx, s.db, r)
}

func saveLeave(ctx context.Context, q querier, r *care.LeaveRequest) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_requests
			(id, requester_id, requester_name, leave_type, reason,
			 start_date, end_date, status, resolution_note, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			resolution_note = excluded.resolution_note,
			resolved_at = excluded.resolved_at`,
		string(r.ID), string(r.RequesterID), r.RequesterName, string(r.Type), r.Reason,
		fmtTime(r.StartDate), fmtTime(r.EndDate),
		string(r.Status), r.ResolutionNote,
		fmtTime(r.CreatedAt), fmtTimePtr(r.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("save leave %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, id care.LeaveID) (*care.LeaveRequest, error) {
	return getLeave(ctx, s.db, id)
}

func getLeave(ctx context.Context, q querier, id care.LeaveID) (*care.LeaveRequest, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, requester_id, requester_name, leave_type, reason,
		       start_date, end_date, status, resolution_note, created_at, resolved_at
		FROM leave_requests WHERE id = ?`, string(id))

	r, err := scanLeave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, care.ErrLeaveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get leave %s: %w", id, err)
	}
	return r, nil
}

func scanLeave(row rowScanner) (*care.LeaveRequest, error) {
	var (
		r                             care.LeaveRequest
		startDate, endDate, createdAt string
		resolvedAt                    sql.NullString
	)
	err := row.Scan(&r.ID, &r.RequesterID, &r.RequesterName, &r.Type, &r.Reason,
		&startDate, &endDate, &r.Status, &r.ResolutionNote, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if r.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if r.EndDate, err = parseTime(endDate); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.ResolvedAt, err = parseTimePtr(resolvedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListPendingLeaves(ctx context.Context) ([]care.LeaveRequest, error) {
	return listPendingLeaves(ctx, s.db)
}

func listPendingLeaves(ctx context.Context, q querier) ([]care.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, requester_id, requester_name, leave_type, reason,
		       start_date, end_date, status, resolution_note, created_at, resolved_at
		FROM leave_requests WHERE status = ? ORDER BY created_at, id`,
		string(care.LeavePending))
	if err != nil {
		return nil, fmt.Errorf("list pending leaves: %w", err)
	}
	defer rows.Close()

	var out []care.LeaveRequest
	for rows.Next() {
		r, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
