// Package laptimer turns a stream of GNSS position events into lap and
// sector timing events by driving a small finite state machine over a
// sliding window of recent fixes.
package laptimer

import (
	"context"
	"log"

	"github.com/rapid-timing/rapid/internal/clock"
	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/geometry"
	"github.com/rapid-timing/rapid/internal/session"
)

// detectTrackID and detectTrackSenderAddr are this module's static
// correlation identity for the startup track-detection request. They
// are design-time constants, not allocated at runtime, matching the
// address scheme the rest of the engine shares.
const (
	detectTrackID         = 10
	detectTrackSenderAddr = 22
)

type state int

const (
	waitingForFirstStart state = iota
	iteratingTrackPoints
	waitingForFinish
)

// Timer is the lap/sector timing state machine. Construct one with New
// and drive it with Run.
type Timer struct {
	ctx   *eventbus.ModuleCtx
	clock clock.Source

	track        *session.Track
	lastPosition [4]session.Position
	filled       int
	state        state
	sector       int
	sectorStart  session.Duration
}

// New constructs a Timer bound to a module context, using the default
// monotonic clock source.
func New(ctx *eventbus.ModuleCtx) *Timer {
	return NewWithClock(ctx, clock.NewMonotonic())
}

// NewWithClock constructs a Timer with an explicit clock source, for
// deterministic testing.
func NewWithClock(ctx *eventbus.ModuleCtx, src clock.Source) *Timer {
	return &Timer{ctx: ctx, clock: src, state: waitingForFirstStart}
}

// LapTime returns the current running lap time, or zero if no lap is in
// progress.
func (t *Timer) LapTime() session.Duration {
	if t.state == waitingForFirstStart {
		return 0
	}
	return session.Duration(t.clock.Elapsed())
}

// UpdatePosition feeds a new fix into the sliding window and, once the
// window is full, re-evaluates the state machine against it.
func (t *Timer) UpdatePosition(pos session.Position) {
	// shift right, insert at front: index 0 is always the newest fix.
	copy(t.lastPosition[1:], t.lastPosition[:3])
	t.lastPosition[0] = pos
	if t.filled < 4 {
		t.filled++
	}
	if t.filled < 4 {
		return
	}
	if t.track != nil {
		t.evaluate()
	}
}

func (t *Timer) evaluate() {
	track := t.track
	window := geometry.Window(t.lastPosition)

	switch t.state {
	case waitingForFirstStart:
		if geometry.Crossed(window, track.StartLine) {
			t.clock.Start()
			t.state = iteratingTrackPoints
			t.sectorStart = 0
			t.publish(eventbus.LapStarted())
		}
	case iteratingTrackPoints:
		if geometry.Crossed(window, track.Sectors[t.sector]) {
			t.sector++
			if t.sector >= len(track.Sectors) {
				t.state = waitingForFinish
			}
			t.finishSector()
		}
	case waitingForFinish:
		if geometry.Crossed(window, track.FinishPosition()) {
			t.finishSector()
			t.publish(eventbus.LapFinished(session.Duration(t.clock.Elapsed())))
			if len(track.Sectors) > 0 {
				t.sector = 0
				t.sectorStart = 0
				t.clock.Start()
				t.state = iteratingTrackPoints
				t.publish(eventbus.LapStarted())
			}
		}
	}
}

func (t *Timer) finishSector() {
	elapsed := session.Duration(t.clock.Elapsed())
	t.publish(eventbus.SectorFinished(elapsed - t.sectorStart))
	t.sectorStart = elapsed
}

func (t *Timer) publish(e eventbus.Event) {
	t.ctx.Bus.Publish(e)
}

// Run executes the timer's event loop: it requests the active track at
// startup, then reacts to position updates and the matching track
// detection response until a Quit event is received.
func (t *Timer) Run(ctx context.Context) {
	t.publish(eventbus.DetectTrackRequest(detectTrackID, detectTrackSenderAddr))

	for {
		e, lag, err := t.ctx.Sub.Receive(ctx)
		if err != nil {
			return
		}
		if lag > 0 {
			log.Printf("laptimer: subscription lagged by %d events", lag)
			continue
		}
		switch e.Kind {
		case eventbus.KindQuit:
			return
		case eventbus.KindGnssPosition:
			fix, ok := eventbus.Payload[session.Fix](e)
			if !ok {
				continue
			}
			t.UpdatePosition(fix.Position())
		case eventbus.KindDetectTrackResponse:
			resp, ok := eventbus.Payload[eventbus.Response[[]session.Track]](e)
			if !ok {
				continue
			}
			if resp.ID != detectTrackID || resp.ReceiverAddr != detectTrackSenderAddr {
				continue
			}
			if len(resp.Data) == 0 {
				continue
			}
			tr := resp.Data[0]
			t.track = &tr
			log.Printf("laptimer: track configured: %s", tr.Name)
			if t.filled == 4 {
				t.evaluate()
			}
		}
	}
}
