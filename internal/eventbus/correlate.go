package eventbus

import (
	"context"
	"errors"
	"log"
	"time"
)

// ErrTimeout is returned by WaitForEvent when no matching event arrives
// within the timeout.
var ErrTimeout = errors.New("eventbus: wait timed out")

// DefaultWaitTimeout is the timeout WaitForEvent uses when none is
// supplied.
const DefaultWaitTimeout = 20 * time.Second

// WaitForEvent blocks on sub until an event of the given kind arrives
// whose payload satisfies match, or until timeout elapses. A timeout of
// zero uses DefaultWaitTimeout. Lag signals observed while waiting are
// logged and otherwise ignored — the wait continues toward a match or
// timeout, it is never itself treated as a failure.
func WaitForEvent(ctx context.Context, sub *Subscription, kind Kind, timeout time.Duration, match func(Event) bool) (Event, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		e, lag, err := sub.Receive(deadline)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return Event{}, ErrTimeout
			}
			return Event{}, err
		}
		if lag > 0 {
			log.Printf("eventbus: subscription %s lagged by %d events while waiting for %s", sub.ID(), lag, kind)
			continue
		}
		if e.Kind == kind && match(e) {
			return e, nil
		}
	}
}

// RequestMatch builds a match predicate for a Response[T] payload that
// checks both the correlation id and the receiver address, the standard
// pairing every request/response exchange in the engine uses.
func RequestMatch[T any](id, addr uint64) func(Event) bool {
	return func(e Event) bool {
		resp, ok := Payload[Response[T]](e)
		if !ok {
			return false
		}
		return resp.ID == id && resp.ReceiverAddr == addr
	}
}
