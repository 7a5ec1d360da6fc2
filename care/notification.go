/*
notification.go - Per-recipient mailbox entries

PURPOSE:
  One Notification is one entry in a recipient's mailbox. Request-type
  entries carry approve/reject affordances for the referenced request;
  info-type entries are announcements. The referenced entity travels in a
  tagged Meta union instead of a loose field bag, so consumers dispatch
  on the kind exhaustively rather than probing for field presence.

INVARIANTS:
  - Read flips false -> true only
  - A request notification becomes terminal (Resolution set) exactly
    once, in the same store transaction as the referenced request

SEE ALSO:
  - notify/hub.go: send / mark-read / unread listing
  - store.go: NotificationStore contract
*/
package care

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// NOTIFICATION
// =============================================================================

type NotificationID string

type NotificationType string

const (
	// NotificationRequest asks the recipient to act (approve/reject).
	NotificationRequest NotificationType = "request"
	// NotificationInfo announces something; no action attached.
	NotificationInfo NotificationType = "info"
)

type Notification struct {
	ID          NotificationID
	RecipientID StaffID

	Type     NotificationType
	Title    string
	Message  string
	SenderID StaffID

	// Read flips false -> true once; never back.
	Read bool

	// Resolution mirrors the referenced request's terminal status
	// ("approved", "rejected", "declined"). Empty while the request is
	// open, and always empty for plain announcements.
	Resolution string

	Meta Meta

	CreatedAt time.Time
}

// =============================================================================
// META - Tagged union identifying the referenced entity
// =============================================================================

// RequestKind discriminates Meta variants.
type RequestKind string

const (
	KindShiftTransfer RequestKind = "shift-transfer"
	KindLeave         RequestKind = "leave"
)

// Meta identifies what a notification refers to. Implementations are
// closed: TransferMeta and LeaveMeta only.
type Meta interface {
	Kind() RequestKind
	// RefID is the referenced request's id, used to resolve every
	// notification pointing at a request when it terminates.
	RefID() string
}

type TransferMeta struct {
	TransferID TransferID `json:"transferId"`
	ShiftID    ShiftID    `json:"shiftId"`
}

func (m TransferMeta) Kind() RequestKind { return KindShiftTransfer }
func (m TransferMeta) RefID() string     { return string(m.TransferID) }

type LeaveMeta struct {
	LeaveID LeaveID `json:"leaveId"`
}

func (m LeaveMeta) Kind() RequestKind { return KindLeave }
func (m LeaveMeta) RefID() string     { return string(m.LeaveID) }

// =============================================================================
// META CODEC - JSON envelope for persistence
// =============================================================================

type metaEnvelope struct {
	RequestType RequestKind     `json:"requestType"`
	Payload     json.RawMessage `json:"payload"`
}

// EncodeMeta serialises a Meta for storage. Nil encodes to "".
func EncodeMeta(m Meta) (string, error) {
	if m == nil {
		return "", nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode meta payload: %w", err)
	}
	raw, err := json.Marshal(metaEnvelope{RequestType: m.Kind(), Payload: payload})
	if err != nil {
		return "", fmt.Errorf("encode meta envelope: %w", err)
	}
	return string(raw), nil
}

// DecodeMeta is the inverse of EncodeMeta. "" decodes to nil.
func DecodeMeta(s string) (Meta, error) {
	if s == "" {
		return nil, nil
	}
	var env metaEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("decode meta envelope: %w", err)
	}
	switch env.RequestType {
	case KindShiftTransfer:
		var m TransferMeta
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode transfer meta: %w", err)
		}
		return m, nil
	case KindLeave:
		var m LeaveMeta
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode leave meta: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown meta kind %q", env.RequestType)
	}
}
