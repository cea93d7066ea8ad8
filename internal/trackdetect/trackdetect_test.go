package trackdetect_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
	"github.com/rapid-timing/rapid/internal/trackdetect"
)

func TestRunRequestsStoredTracksOnStartup(t *testing.T) {
	bus := eventbus.New()
	observer := bus.Subscribe()
	d := trackdetect.New(bus.Context())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(runCtx)

	ctx, c2 := context.WithTimeout(context.Background(), time.Second)
	defer c2()
	e, _, err := observer.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, eventbus.KindLoadAllStoredTracksRequest, e.Kind)
	req, ok := eventbus.Payload[eventbus.Request[eventbus.Empty]](e)
	require.True(t, ok)
	assert.EqualValues(t, 0, req.ID)
	assert.EqualValues(t, 20, req.SenderAddr)
}

func TestRunAnswersRequestOnceCatalogAndPositionAvailable(t *testing.T) {
	bus := eventbus.New()
	observer := bus.Subscribe()
	d := trackdetect.New(bus.Context())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(runCtx)

	ctx, c2 := context.WithTimeout(context.Background(), time.Second)
	defer c2()
	_, _, err := observer.Receive(ctx) // startup LoadAllStoredTracksRequest
	require.NoError(t, err)

	near := session.Track{Name: "near", StartLine: session.Position{Latitude: 52.0, Longitude: 11.0}}
	far := session.Track{Name: "far", StartLine: session.Position{Latitude: 10.0, Longitude: 10.0}}
	bus.Publish(eventbus.LoadAllStoredTracksResponse(0, 20, []session.Track{near, far}))
	// detection request arrives before any position update
	bus.Publish(eventbus.DetectTrackRequest(10, 100))
	time.Sleep(10 * time.Millisecond)

	bus.Publish(eventbus.GnssPosition(session.NewFix(52.0001, 11.0001, 0, session.ClockTime{}, session.Date{})))

	// the observer also sees the events this test published; skip ahead
	// to the detector's response.
	e, err := eventbus.WaitForEvent(ctx, observer, eventbus.KindDetectTrackResponse, time.Second, func(eventbus.Event) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, eventbus.KindDetectTrackResponse, e.Kind)
	resp, ok := eventbus.Payload[eventbus.Response[[]session.Track]](e)
	require.True(t, ok)
	assert.EqualValues(t, 10, resp.ID)
	assert.EqualValues(t, 100, resp.ReceiverAddr)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "near", resp.Data[0].Name)
}

func TestRunQueuesMultipleRequestsAndAnswersAllWithSameSnapshot(t *testing.T) {
	bus := eventbus.New()
	observer := bus.Subscribe()
	d := trackdetect.New(bus.Context())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(runCtx)

	ctx, c2 := context.WithTimeout(context.Background(), time.Second)
	defer c2()
	_, _, err := observer.Receive(ctx)
	require.NoError(t, err)

	bus.Publish(eventbus.DetectTrackRequest(1, 100))
	bus.Publish(eventbus.DetectTrackRequest(2, 200))
	time.Sleep(10 * time.Millisecond)

	track := session.Track{Name: "t", StartLine: session.Position{Latitude: 52.0, Longitude: 11.0}}
	bus.Publish(eventbus.LoadAllStoredTracksResponse(0, 20, []session.Track{track}))
	bus.Publish(eventbus.GnssPosition(session.NewFix(52.0, 11.0, 0, session.ClockTime{}, session.Date{})))

	anyResponse := func(eventbus.Event) bool { return true }
	first, err := eventbus.WaitForEvent(ctx, observer, eventbus.KindDetectTrackResponse, time.Second, anyResponse)
	require.NoError(t, err)
	second, err := eventbus.WaitForEvent(ctx, observer, eventbus.KindDetectTrackResponse, time.Second, anyResponse)
	require.NoError(t, err)

	r1, ok := eventbus.Payload[eventbus.Response[[]session.Track]](first)
	require.True(t, ok)
	r2, ok := eventbus.Payload[eventbus.Response[[]session.Track]](second)
	require.True(t, ok)
	assert.ElementsMatch(t, []uint64{r1.ID, r2.ID}, []uint64{1, 2})
	assert.Equal(t, r1.Data, r2.Data)
}
