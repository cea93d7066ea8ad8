// Package eventbus implements the engine's in-process publish/subscribe
// fabric: a fixed-capacity fan-out buffer with per-subscriber lag
// signaling, plus a request/response correlation helper layered over
// plain broadcast.
//
// A Go channel can express "block until delivered" or "drop when full",
// but not both "drop the oldest entry on overflow" and "tell the reader
// exactly how far it fell behind, then resume from the newest retained
// event" at once. Subscriptions are therefore backed by a shared ring
// buffer with per-subscriber read cursors (the same cursor-over-a-fixed
// window shape as a position-indexed ring buffer), not by one channel
// per subscriber.
package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Capacity is the fixed number of events retained for a lagging
// subscriber before the oldest is dropped.
const Capacity = 100

// ErrClosed is returned from Receive once the bus has been closed and no
// further events remain for the calling subscription.
var ErrClosed = errors.New("eventbus: closed")

var busIDCounter int64

// Bus fans a stream of Events out to every current Subscription.
type Bus struct {
	id int64

	mu     sync.Mutex
	ring   [Capacity]Event
	total  int64 // total events ever published
	closed bool
	subs   map[*Subscription]struct{}
}

// New creates a Bus with a process-wide unique id.
func New() *Bus {
	return &Bus{
		id:   atomic.AddInt64(&busIDCounter, 1),
		subs: make(map[*Subscription]struct{}),
	}
}

// BusID returns this bus instance's stable, process-wide unique id.
func (b *Bus) BusID() int64 { return b.id }

// Publish fans event out to every current subscriber. It never blocks
// and never fails for the caller: if there are no subscribers, the event
// is simply discarded.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	idx := b.total % Capacity
	b.ring[idx] = e
	b.total++
	for s := range b.subs {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a new Subscription that observes only events
// published after this call returns; there is no replay of history.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Subscription{
		id:     uuid.NewString(),
		bus:    b,
		pos:    b.total,
		notify: make(chan struct{}, 1),
	}
	b.subs[s] = struct{}{}
	return s
}

// Close shuts the bus down: every blocked or future Receive call on any
// subscription returns ErrClosed once its buffered events are drained.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.notify)
	}
}

// Context bundles a fresh Subscription with the Bus itself, the
// publish/subscribe pair a module needs to participate on the bus.
func (b *Bus) Context() *ModuleCtx {
	return &ModuleCtx{Bus: b, Sub: b.Subscribe()}
}

// ModuleCtx is the handle a module is constructed with: it can publish
// through Bus and receive through Sub.
type ModuleCtx struct {
	Bus *Bus
	Sub *Subscription
}

// Subscription is a per-subscriber FIFO view over the Bus's shared ring
// buffer, with lag-on-overflow semantics.
type Subscription struct {
	id     string
	bus    *Bus
	pos    int64
	notify chan struct{}

	closeOnce sync.Once
}

// ID returns this subscription's stable identity.
func (s *Subscription) ID() string { return s.id }

// Unsubscribe removes the subscription from its bus. Safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs, s)
	})
}

// Receive blocks until the next event is available, the subscription
// falls behind (in which case it reports how many events were skipped),
// the bus is closed, or ctx is done.
//
// On lag, Receive returns (Event{}, n, nil) with n > 0 and does not
// consume an event; the very next call to Receive returns the newest
// event currently retained in the ring, per the bus's resume-from-newest
// contract — skipped events in between are gone for good.
func (s *Subscription) Receive(ctx context.Context) (Event, int, error) {
	for {
		s.bus.mu.Lock()
		total := s.bus.total
		closed := s.bus.closed
		oldest := total - Capacity
		if oldest < 0 {
			oldest = 0
		}

		switch {
		case s.pos < oldest:
			n := int(oldest - s.pos)
			s.pos = total - 1
			if s.pos < 0 {
				s.pos = 0
			}
			s.bus.mu.Unlock()
			return Event{}, n, nil
		case s.pos < total:
			e := s.bus.ring[s.pos%Capacity]
			s.pos++
			s.bus.mu.Unlock()
			return e, 0, nil
		case closed:
			s.bus.mu.Unlock()
			return Event{}, 0, ErrClosed
		}
		s.bus.mu.Unlock()

		select {
		case _, ok := <-s.notify:
			if !ok {
				// closed with nothing left to deliver for this subscriber
				return Event{}, 0, ErrClosed
			}
		case <-ctx.Done():
			return Event{}, 0, ctx.Err()
		}
	}
}
