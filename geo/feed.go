package geo

import (
	"context"
	"sync"
)

// =============================================================================
// FEED - In-process Locator fed by explicit publishes
// =============================================================================

// Feed is a Locator whose samples are pushed in by the caller: the HTTP
// layer publishes device-reported positions into it, and tests drive it
// directly. It also counts active watches so leak assertions are cheap.
type Feed struct {
	mu       sync.Mutex
	last     *Position
	watchers map[WatchHandle]func(Position)
	next     WatchHandle
	offline  bool
}

func NewFeed() *Feed {
	return &Feed{watchers: make(map[WatchHandle]func(Position))}
}

// SetOffline toggles simulated permission denial / device loss.
func (f *Feed) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

// Publish delivers one sample to Current and to every active watch.
func (f *Feed) Publish(p Position) {
	f.mu.Lock()
	f.last = &p
	cbs := make([]func(Position), 0, len(f.watchers))
	for _, cb := range f.watchers {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(p)
	}
}

func (f *Feed) Current(ctx context.Context) (Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline || f.last == nil {
		return Position{}, ErrUnavailable
	}
	return *f.last, nil
}

func (f *Feed) Watch(cb func(Position)) (WatchHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return 0, ErrUnavailable
	}
	f.next++
	f.watchers[f.next] = cb
	return f.next, nil
}

func (f *Feed) ClearWatch(h WatchHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.watchers, h)
}

// ActiveWatches returns the number of live watches. Tests use this to
// assert that rides tear their subscriptions down.
func (f *Feed) ActiveWatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}
