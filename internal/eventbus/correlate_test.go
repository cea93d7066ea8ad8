package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
)

func TestWaitForEventRequestMatchRejectsWrongAddr(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Publish(eventbus.DetectTrackResponse(10, 22, nil))
	}()

	_, err := eventbus.WaitForEvent(context.Background(), sub, eventbus.KindDetectTrackResponse,
		50*time.Millisecond, eventbus.RequestMatch[[]session.Track](10, 99))
	assert.ErrorIs(t, err, eventbus.ErrTimeout)
}

func TestWaitForEventRequestMatchAcceptsCorrelatedResponse(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	tracks := []session.Track{{Name: "Oschersleben"}}
	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Publish(eventbus.DetectTrackResponse(10, 22, tracks))
	}()

	e, err := eventbus.WaitForEvent(context.Background(), sub, eventbus.KindDetectTrackResponse,
		time.Second, eventbus.RequestMatch[[]session.Track](10, 22))
	require.NoError(t, err)

	resp, ok := eventbus.Payload[eventbus.Response[[]session.Track]](e)
	require.True(t, ok)
	assert.Equal(t, tracks, resp.Data)
}

func TestWaitForEventSkipsUnmatchedEvents(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	go func() {
		time.Sleep(5 * time.Millisecond)
		b.Publish(eventbus.LapStarted())
		b.Publish(eventbus.DetectTrackResponse(10, 22, nil))
	}()

	e, err := eventbus.WaitForEvent(context.Background(), sub, eventbus.KindDetectTrackResponse,
		time.Second, eventbus.RequestMatch[[]session.Track](10, 22))
	require.NoError(t, err)
	assert.Equal(t, eventbus.KindDetectTrackResponse, e.Kind)
}

func TestWaitForEventTimesOut(t *testing.T) {
	b := eventbus.New()
	sub := b.Subscribe()

	_, err := eventbus.WaitForEvent(context.Background(), sub, eventbus.KindLapFinished,
		20*time.Millisecond, func(eventbus.Event) bool { return true })
	assert.ErrorIs(t, err, eventbus.ErrTimeout)
}
