package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brightpath/shift-engine/care"
)

// =============================================================================
// NOTIFICATIONS - Per-recipient mailbox
// =============================================================================

// seq is a table-wide insertion counter so "newest first" is stable even
// when wall-clock timestamps collide.
func nextSeq(ctx context.Context, q querier) (int64, error) {
	var seq sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(seq) FROM notifications`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq.Int64 + 1, nil
}

func (s *Store) AddNotification(ctx context.Context, n *care.Notification) error {
	s.mu.Lock()
	err := addNotification(ctx, s.db, n)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyMailbox(ctx, n.RecipientID)
	return nil
}

func addNotification(ctx context.Context, q querier, n *care.Notification) error {
	metaJSON, err := care.EncodeMeta(n.Meta)
	if err != nil {
		return err
	}
	var kind, ref string
	if n.Meta != nil {
		kind = string(n.Meta.Kind())
		ref = n.Meta.RefID()
	}
	seq, err := nextSeq(ctx, q)
	if err != nil {
		return fmt.Errorf("notification seq: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO notifications
			(recipient_id, id, type, title, message, sender_id, read, resolution,
			 meta_kind, meta_ref, meta_json, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(n.RecipientID), string(n.ID), string(n.Type), n.Title, n.Message,
		string(n.SenderID), boolInt(n.Read), n.Resolution,
		kind, ref, metaJSON, fmtTime(n.CreatedAt), seq,
	)
	if err != nil {
		return fmt.Errorf("add notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, recipient care.StaffID, id care.NotificationID) (*care.Notification, error) {
	return getNotification(ctx, s.db, recipient, id)
}

func getNotification(ctx context.Context, q querier, recipient care.StaffID, id care.NotificationID) (*care.Notification, error) {
	row := q.QueryRowContext(ctx, `
		SELECT recipient_id, id, type, title, message, sender_id, read, resolution, meta_json, created_at
		FROM notifications WHERE recipient_id = ? AND id = ?`,
		string(recipient), string(id))
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, care.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification %s: %w", id, err)
	}
	return n, nil
}

func scanNotification(row rowScanner) (*care.Notification, error) {
	var (
		n         care.Notification
		read      int
		metaJSON  string
		createdAt string
	)
	err := row.Scan(&n.RecipientID, &n.ID, &n.Type, &n.Title, &n.Message,
		&n.SenderID, &read, &n.Resolution, &metaJSON, &createdAt)
	if err != nil {
		return nil, err
	}
	n.Read = read != 0
	if n.Meta, err = care.DecodeMeta(metaJSON); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, recipient care.StaffID, id care.NotificationID) error {
	s.mu.Lock()
	err := markNotificationRead(ctx, s.db, recipient, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyMailbox(ctx, recipient)
	return nil
}

func markNotificationRead(ctx context.Context, q querier, recipient care.StaffID, id care.NotificationID) error {
	// read only ever transitions 0 -> 1.
	res, err := q.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE recipient_id = ? AND id = ?`,
		string(recipient), string(id))
	if err != nil {
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return care.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) ResolveRequestNotifications(ctx context.Context, kind care.RequestKind, refID, resolution string) error {
	s.mu.Lock()
	recipients, err := resolveRequestNotifications(ctx, s.db, kind, refID, resolution)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, r := range recipients {
		s.notifyMailbox(ctx, r)
	}
	return nil
}

func resolveRequestNotifications(ctx context.Context, q querier, kind care.RequestKind, refID, resolution string) ([]care.StaffID, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT recipient_id FROM notifications
		WHERE meta_kind = ? AND meta_ref = ? AND type = ? AND resolution = ''`,
		string(kind), refID, string(care.NotificationRequest))
	if err != nil {
		return nil, fmt.Errorf("resolve notifications: %w", err)
	}
	var recipients []care.StaffID
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			rows.Close()
			return nil, err
		}
		recipients = append(recipients, care.StaffID(r))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = q.ExecContext(ctx, `
		UPDATE notifications SET resolution = ?
		WHERE meta_kind = ? AND meta_ref = ? AND type = ? AND resolution = ''`,
		resolution, string(kind), refID, string(care.NotificationRequest))
	if err != nil {
		return nil, fmt.Errorf("resolve notifications: %w", err)
	}
	return recipients, nil
}

func (s *Store) ListNotifications(ctx context.Context, recipient care.StaffID, unreadOnly bool) ([]care.Notification, error) {
	return listNotifications(ctx, s.db, recipient, unreadOnly)
}

func listNotifications(ctx context.Context, q querier, recipient care.StaffID, unreadOnly bool) ([]care.Notification, error) {
	query := `
		SELECT recipient_id, id, type, title, message, sender_id, read, resolution, meta_json, created_at
		FROM notifications WHERE recipient_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY seq DESC`

	rows, err := q.QueryContext(ctx, query, string(recipient))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []care.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *Store) WatchUnread(ctx context.Context, recipient care.StaffID) (<-chan []care.Notification, care.CancelFunc, error) {
	return s.watch.subscribeMailbox(recipient)
}

func (s *Store) notifyMailbox(ctx context.Context, recipient care.StaffID) {
	unread, err := s.ListNotifications(ctx, recipient, true)
	if err != nil {
		return
	}
	s.watch.publishMailbox(recipient, unread)
}
