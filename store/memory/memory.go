/*
memory.go - In-memory document store for tests and development

PURPOSE:
  Implements care.TxStore with plain maps under one mutex. Watch
  semantics match the SQLite store: events fire only for committed
  state, carrying deep copies so subscribers never alias live documents.

CONCURRENCY MODEL:
  One mutex guards every collection. Mutations collect touched shift ids
  and mailbox recipients into an events set; fire() pushes fresh copies
  to subscribers after the lock is released, so callbacks can re-enter
  the store.

WATCH CHANNELS:
  Buffered and lossy: a slow subscriber drops intermediate states, never
  blocks a writer. The cancel func closes the channel; double-cancel is
  safe.

SEE ALSO:
  - tx.go: snapshot-rollback transactions
  - ../sqlite: the production implementation
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brightpath/shift-engine/care"
)

const watchBuffer = 16

// Store is an in-memory care.TxStore.
type Store struct {
	mu sync.Mutex

	shifts    map[care.ShiftID]*care.Shift
	transfers map[care.TransferID]*care.TransferRequest
	leaves    map[care.LeaveID]*care.LeaveRequest

	// notes keeps each recipient's mailbox in insertion order; listings
	// reverse it for newest-first.
	notes map[care.StaffID][]*care.Notification

	nextWatch  int
	shiftWatch map[int]*shiftWatcher
	noteWatch  map[int]*noteWatcher
}

type shiftWatcher struct {
	id care.ShiftID
	ch chan care.Shift
}

type noteWatcher struct {
	recipient care.StaffID
	ch        chan []care.Notification
}

func New() *Store {
	return &Store{
		shifts:     make(map[care.ShiftID]*care.Shift),
		transfers:  make(map[care.TransferID]*care.TransferRequest),
		leaves:     make(map[care.LeaveID]*care.LeaveRequest),
		notes:      make(map[care.StaffID][]*care.Notification),
		shiftWatch: make(map[int]*shiftWatcher),
		noteWatch:  make(map[int]*noteWatcher),
	}
}

// =============================================================================
// EVENTS - Touched documents, flushed after commit
// =============================================================================

type events struct {
	shifts     map[care.ShiftID]bool
	recipients map[care.StaffID]bool
}

func newEvents() *events {
	return &events{
		shifts:     make(map[care.ShiftID]bool),
		recipients: make(map[care.StaffID]bool),
	}
}

// fire pushes committed state to subscribers. Sends are lossy and
// non-blocking, so they happen under the lock; a cancel can never close
// a channel between the liveness check and the send.
func (s *Store) fire(ev *events) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range ev.shifts {
		sh, ok := s.shifts[id]
		if !ok {
			continue
		}
		for _, w := range s.shiftWatch {
			if w.id != id {
				continue
			}
			select {
			case w.ch <- *sh.Clone():
			default:
			}
		}
	}
	for r := range ev.recipients {
		for _, w := range s.noteWatch {
			if w.recipient != r {
				continue
			}
			select {
			case w.ch <- s.listNotesLocked(r, true):
			default:
			}
		}
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

func (s *Store) GetShift(_ context.Context, id care.ShiftID) (*care.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getShiftLocked(id)
}

func (s *Store) getShiftLocked(id care.ShiftID) (*care.Shift, error) {
	sh, ok := s.shifts[id]
	if !ok {
		return nil, care.ErrShiftNotFound
	}
	return sh.Clone(), nil
}

func (s *Store) PutShift(_ context.Context, sh *care.Shift) error {
	ev := newEvents()
	s.mu.Lock()
	s.putShiftLocked(sh, ev)
	s.mu.Unlock()
	s.fire(ev)
	return nil
}

func (s *Store) putShiftLocked(sh *care.Shift, ev *events) {
	s.shifts[sh.ID] = sh.Clone()
	ev.shifts[sh.ID] = true
}

func (s *Store) PatchShift(_ context.Context, id care.ShiftID, p care.ShiftPatch) error {
	ev := newEvents()
	s.mu.Lock()
	err := s.patchShiftLocked(id, p, ev)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.fire(ev)
	return nil
}

func (s *Store) patchShiftLocked(id care.ShiftID, p care.ShiftPatch, ev *events) error {
	sh, ok := s.shifts[id]
	if !ok {
		return care.ErrShiftNotFound
	}
	p.Apply(sh)
	ev.shifts[id] = true
	return nil
}

func (s *Store) ListShifts(_ context.Context) ([]care.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listShiftsLocked(), nil
}

func (s *Store) listShiftsLocked() []care.Shift {
	out := make([]care.Shift, 0, len(s.shifts))
	for _, sh := range s.shifts {
		out = append(out, *sh.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledStart.Equal(out[j].ScheduledStart) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledStart.Before(out[j].ScheduledStart)
	})
	return out
}

func (s *Store) WatchShift(_ context.Context, id care.ShiftID) (<-chan care.Shift, care.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shifts[id]; !ok {
		return nil, nil, care.ErrShiftNotFound
	}

	s.nextWatch++
	key := s.nextWatch
	w := &shiftWatcher{id: id, ch: make(chan care.Shift, watchBuffer)}
	s.shiftWatch[key] = w

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.shiftWatch[key]; ok {
			close(w.ch)
			delete(s.shiftWatch, key)
		}
	}
	return w.ch, cancel, nil
}

// =============================================================================
// TRANSFER REQUESTS
// =============================================================================

func (s *Store) SaveTransfer(_ context.Context, r *care.TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveTransferLocked(r)
	return nil
}

func (s *Store) saveTransferLocked(r *care.TransferRequest) {
	cp := *r
	s.transfers[r.ID] = &cp
}

func (s *Store) GetTransfer(_ context.Context, id care.TransferID) (*care.TransferRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTransferLocked(id)
}

func (s *Store) getTransferLocked(id care.TransferID) (*care.TransferRequest, error) {
	r, ok := s.transfers[id]
	if !ok {
		return nil, care.ErrTransferNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListPendingTransfers(_ context.Context) ([]care.TransferRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPendingTransfersLocked(), nil
}

func (s *Store) listPendingTransfersLocked() []care.TransferRequest {
	out := make([]care.TransferRequest, 0)
	for _, r := range s.transfers {
		if !r.Resolved() {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (s *Store) SaveLeave(_ context.Context, r *care.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLeaveLocked(r)
	return nil
}

func (s *Store) saveLeaveLocked(r *care.LeaveRequest) {
	cp := *r
	s.leaves[r.ID] = &cp
}

func (s *Store) GetLeave(_ context.Context, id care.LeaveID) (*care.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLeaveLocked(id)
}

func (s *Store) getLeaveLocked(id care.LeaveID) (*care.LeaveRequest, error) {
	r, ok := s.leaves[id]
	if !ok {
		return nil, care.ErrLeaveNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListPendingLeaves(_ context.Context) ([]care.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPendingLeavesLocked(), nil
}

func (s *Store) listPendingLeavesLocked() []care.LeaveRequest {
	out := make([]care.LeaveRequest, 0)
	for _, r := range s.leaves {
		if !r.Resolved() {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (s *Store) AddNotification(_ context.Context, n *care.Notification) error {
	ev := newEvents()
	s.mu.Lock()
	s.addNotificationLocked(n, ev)
	s.mu.Unlock()
	s.fire(ev)
	return nil
}

func (s *Store) addNotificationLocked(n *care.Notification, ev *events) {
	cp := *n
	s.notes[n.RecipientID] = append(s.notes[n.RecipientID], &cp)
	ev.recipients[n.RecipientID] = true
}

func (s *Store) GetNotification(_ context.Context, recipient care.StaffID, id care.NotificationID) (*care.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getNotificationLocked(recipient, id)
}

func (s *Store) getNotificationLocked(recipient care.StaffID, id care.NotificationID) (*care.Notification, error) {
	for _, n := range s.notes[recipient] {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, care.ErrNotificationNotFound
}

func (s *Store) MarkNotificationRead(_ context.Context, recipient care.StaffID, id care.NotificationID) error {
	ev := newEvents()
	s.mu.Lock()
	err := s.markNotificationReadLocked(recipient, id, ev)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.fire(ev)
	return nil
}

func (s *Store) markNotificationReadLocked(recipient care.StaffID, id care.NotificationID, ev *events) error {
	for _, n := range s.notes[recipient] {
		if n.ID == id {
			n.Read = true
			ev.recipients[recipient] = true
			return nil
		}
	}
	return care.ErrNotificationNotFound
}

func (s *Store) ResolveRequestNotifications(_ context.Context, kind care.RequestKind, refID, resolution string) error {
	ev := newEvents()
	s.mu.Lock()
	s.resolveRequestNotificationsLocked(kind, refID, resolution, ev)
	s.mu.Unlock()
	s.fire(ev)
	return nil
}

func (s *Store) resolveRequestNotificationsLocked(kind care.RequestKind, refID, resolution string, ev *events) {
	for recipient, notes := range s.notes {
		for _, n := range notes {
			if n.Type != care.NotificationRequest {
				continue
			}
			if n.Meta == nil || n.Meta.Kind() != kind || n.Meta.RefID() != refID {
				continue
			}
			// Terminal once: the first resolution sticks.
			if n.Resolution == "" {
				n.Resolution = resolution
				ev.recipients[recipient] = true
			}
		}
	}
}

func (s *Store) ListNotifications(_ context.Context, recipient care.StaffID, unreadOnly bool) ([]care.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listNotesLocked(recipient, unreadOnly), nil
}

// listNotesLocked walks the mailbox backwards: newest first.
func (s *Store) listNotesLocked(recipient care.StaffID, unreadOnly bool) []care.Notification {
	notes := s.notes[recipient]
	out := make([]care.Notification, 0, len(notes))
	for i := len(notes) - 1; i >= 0; i-- {
		if unreadOnly && notes[i].Read {
			continue
		}
		out = append(out, *notes[i])
	}
	return out
}

func (s *Store) WatchUnread(_ context.Context, recipient care.StaffID) (<-chan []care.Notification, care.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextWatch++
	key := s.nextWatch
	w := &noteWatcher{recipient: recipient, ch: make(chan []care.Notification, watchBuffer)}
	s.noteWatch[key] = w

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.noteWatch[key]; ok {
			close(w.ch)
			delete(s.noteWatch, key)
		}
	}
	return w.ch, cancel, nil
}

// WatchCount reports live subscriptions. Leak assertions in tests.
func (s *Store) WatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shiftWatch) + len(s.noteWatch)
}
