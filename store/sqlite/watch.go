package sqlite

import (
	"sync"

	"github.com/brightpath/shift-engine/care"
)

// =============================================================================
// WATCH REGISTRY - In-process change feed
// =============================================================================

// watchRegistry broadcasts committed state to subscribers. Channels are
// buffered and lossy: a slow consumer misses intermediate states, never
// the final one it reads next.
type watchRegistry struct {
	mu      sync.Mutex
	next    int
	shifts  map[care.ShiftID]map[int]chan care.Shift
	mailbox map[care.StaffID]map[int]chan []care.Notification
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{
		shifts:  make(map[care.ShiftID]map[int]chan care.Shift),
		mailbox: make(map[care.StaffID]map[int]chan []care.Notification),
	}
}

func (w *watchRegistry) subscribeShift(id care.ShiftID) (<-chan care.Shift, care.CancelFunc, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.next++
	key := w.next
	ch := make(chan care.Shift, 16)
	if w.shifts[id] == nil {
		w.shifts[id] = make(map[int]chan care.Shift)
	}
	w.shifts[id][key] = ch

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.shifts[id][key]; ok {
			delete(w.shifts[id], key)
			close(c)
		}
	}
	return ch, cancel, nil
}

func (w *watchRegistry) publishShift(s care.Shift) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.shifts[s.ID] {
		select {
		case ch <- s:
		default:
		}
	}
}

func (w *watchRegistry) subscribeMailbox(recipient care.StaffID) (<-chan []care.Notification, care.CancelFunc, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.next++
	key := w.next
	ch := make(chan []care.Notification, 16)
	if w.mailbox[recipient] == nil {
		w.mailbox[recipient] = make(map[int]chan []care.Notification)
	}
	w.mailbox[recipient][key] = ch

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.mailbox[recipient][key]; ok {
			delete(w.mailbox[recipient], key)
			close(c)
		}
	}
	return ch, cancel, nil
}

func (w *watchRegistry) publishMailbox(recipient care.StaffID, unread []care.Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.mailbox[recipient] {
		select {
		case ch <- unread:
		default:
		}
	}
}

// count reports live subscriptions; tests assert teardown with it.
func (w *watchRegistry) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, m := range w.shifts {
		n += len(m)
	}
	for _, m := range w.mailbox {
		n += len(m)
	}
	return n
}
