/*
Package notify is the per-recipient notification mailbox.

PURPOSE:
  Hub is the single surface for mailbox traffic: workflows push entries
  in, the UI marks them read and subscribes to the unread view. Exactly
  one entry is created per logical event per recipient; the transfer and
  leave workflows are the only producers.

READ FLAG:
  Monotonic. MarkRead on an already-read entry is a no-op; nothing ever
  flips an entry back to unread.

SEE ALSO:
  - care/notification.go: record + tagged meta union
  - transfer/workflow.go, leave/workflow.go: producers
*/
package notify

import (
	"context"
	"time"

	"github.com/brightpath/shift-engine/care"
	"github.com/google/uuid"
)

// Hub fronts a recipient-scoped notification collection.
type Hub struct {
	store care.NotificationStore
}

func NewHub(store care.NotificationStore) *Hub {
	return &Hub{store: store}
}

// Send creates one mailbox entry. A zero ID or CreatedAt is filled in.
func (h *Hub) Send(ctx context.Context, n *care.Notification) error {
	Stamp(n)
	return h.store.AddNotification(ctx, n)
}

// MarkRead flips the read flag, monotonically.
func (h *Hub) MarkRead(ctx context.Context, recipient care.StaffID, id care.NotificationID) error {
	return h.store.MarkNotificationRead(ctx, recipient, id)
}

// ListUnread returns the recipient's unread entries, newest first.
func (h *Hub) ListUnread(ctx context.Context, recipient care.StaffID) ([]care.Notification, error) {
	return h.store.ListNotifications(ctx, recipient, true)
}

// List returns the whole mailbox, newest first.
func (h *Hub) List(ctx context.Context, recipient care.StaffID) ([]care.Notification, error) {
	return h.store.ListNotifications(ctx, recipient, false)
}

// WatchUnread is the live badge/list feed for a recipient.
func (h *Hub) WatchUnread(ctx context.Context, recipient care.StaffID) (<-chan []care.Notification, care.CancelFunc, error) {
	return h.store.WatchUnread(ctx, recipient)
}

// =============================================================================
// BUILDERS - One constructor per notification shape
// =============================================================================

// Stamp fills in identity and creation time if the caller left them zero.
func Stamp(n *care.Notification) {
	if n.ID == "" {
		n.ID = care.NotificationID(uuid.NewString())
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
}

// NewRequest builds an action notification carrying approve/reject
// affordances for the referenced request.
func NewRequest(recipient, sender care.StaffID, title, message string, meta care.Meta) *care.Notification {
	n := &care.Notification{
		RecipientID: recipient,
		Type:        care.NotificationRequest,
		Title:       title,
		Message:     message,
		SenderID:    sender,
		Meta:        meta,
	}
	Stamp(n)
	return n
}

// NewInfo builds a plain announcement.
func NewInfo(recipient, sender care.StaffID, title, message string, meta care.Meta) *care.Notification {
	n := &care.Notification{
		RecipientID: recipient,
		Type:        care.NotificationInfo,
		Title:       title,
		Message:     message,
		SenderID:    sender,
		Meta:        meta,
	}
	Stamp(n)
	return n
}
