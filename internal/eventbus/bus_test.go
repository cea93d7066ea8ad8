package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/eventbus"
)

func TestPublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := eventbus.New()
	assert.NotPanics(t, func() {
		b.Publish(eventbus.LapStarted())
	})
}

func TestSubscribeOnlySeesFutureEvents(t *testing.T) {
	b := eventbus.New()
	b.Publish(eventbus.LapStarted())

	sub := b.Subscribe()
	b.Publish(eventbus.Quit())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, lag, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, lag)
	assert.Equal(t, eventbus.KindQuit, e.Kind)
}

func TestReceiveBlocksUntilPublish(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	done := make(chan eventbus.Event, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		e, _, err := sub.Receive(ctx)
		if err == nil {
			done <- e
		}
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(eventbus.LapStarted())

	select {
	case e := <-done:
		assert.Equal(t, eventbus.KindLapStarted, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("receive never unblocked")
	}
}

func TestReceiveTimesOutViaContext(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := sub.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestLaggingSubscriberResumesFromNewest is Scenario E from the spec:
// publish 150 events without draining a capacity-100 subscription; the
// next receive reports a lag of at least 50, and the receive after that
// yields the most recently published event, not an intermediate one.
func TestLaggingSubscriberResumesFromNewest(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	for i := 0; i < 150; i++ {
		b.Publish(eventbus.LapStarted())
	}
	// make the 151st (newest) event distinguishable
	newest := eventbus.LapFinished(0)
	b.Publish(newest)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, lag, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, lag, 50)

	e, lag2, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, lag2)
	assert.Equal(t, eventbus.KindLapFinished, e.Kind)
}

func TestBusIDsAreUniquePerInstance(t *testing.T) {
	a := eventbus.New()
	b := eventbus.New()
	assert.NotEqual(t, a.BusID(), b.BusID())
}

func TestCloseUnblocksReceivers(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	done := make(chan error, 1)
	go func() {
		_, _, err := sub.Receive(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, eventbus.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("receive never unblocked on close")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()
	assert.NotPanics(t, func() {
		sub.Unsubscribe()
		sub.Unsubscribe()
	})
}

func TestContextBundlesFreshSubscription(t *testing.T) {
	b := eventbus.New()
	ctx := b.Context()
	assert.Same(t, b, ctx.Bus)
	assert.NotEmpty(t, ctx.Sub.ID())
}
