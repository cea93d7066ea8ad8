// Package activesession accumulates laps and telemetry into an open
// Session as timing events arrive, and hands the session to the store
// for persistence whenever a lap completes.
package activesession

import (
	"context"
	"log"
	"time"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
	"github.com/rapid-timing/rapid/internal/stats"
)

// detectTrackID and detectTrackSenderAddr are this module's static
// correlation identity for the startup track-detection request.
const (
	detectTrackID         = 10
	detectTrackSenderAddr = 100
)

// saveSessionID and saveSessionSenderAddr identify save requests issued
// on lap completion.
const (
	saveSessionID         = 30
	saveSessionSenderAddr = 40
)

// nowFunc is overridable in tests so session creation timestamps are
// deterministic.
var nowFunc = time.Now

// Builder assembles an open Session from bus events and shares it, via a
// lock-guarded Handle, with anything that needs to read it concurrently
// (principally the session store while it is serializing a save).
type Builder struct {
	ctx *eventbus.ModuleCtx

	handle    *session.Handle
	activeLap *session.Lap
}

// New constructs a Builder bound to a module context.
func New(ctx *eventbus.ModuleCtx) *Builder {
	return &Builder{ctx: ctx, handle: session.NewHandle(nil)}
}

// Handle exposes the builder's shared session handle for read access by
// other components (the store, statistics reporting).
func (b *Builder) Handle() *session.Handle { return b.handle }

func (b *Builder) onTrackDetected(resp eventbus.Response[[]session.Track]) {
	if resp.ID != detectTrackID || resp.ReceiverAddr != detectTrackSenderAddr {
		return
	}
	if len(resp.Data) == 0 {
		// No match: no session is opened. The detection request is sent
		// once at startup and is not repeated, so the builder stays
		// without a session.
		return
	}
	track := resp.Data[0]
	now := nowFunc()
	s := &session.Session{
		Date:  session.DateFromTime(now),
		Time:  session.ClockTimeFromTime(now),
		Track: track,
	}
	b.handle.WithWrite(func(cur **session.Session) { *cur = s })
	log.Printf("activesession: started on track %s", track.Name)
}

func (b *Builder) onPosition(fix session.Fix) {
	if b.activeLap != nil {
		b.activeLap.LogPoints = append(b.activeLap.LogPoints, fix)
	}
}

func (b *Builder) onLapStarted() {
	b.activeLap = &session.Lap{}
}

func (b *Builder) onSectorFinished(d session.Duration) {
	if b.activeLap == nil {
		return
	}
	b.activeLap.Sectors = append(b.activeLap.Sectors, d)
	log.Printf("activesession: sector %d finished in %s", len(b.activeLap.Sectors), d)
}

func (b *Builder) onLapFinished(d session.Duration) {
	if b.activeLap == nil {
		return
	}
	lap := *b.activeLap
	b.activeLap = nil

	var hasSession bool
	b.handle.WithWrite(func(cur **session.Session) {
		if *cur == nil {
			return
		}
		(*cur).Laps = append((*cur).Laps, lap)
		hasSession = true
	})
	if !hasSession {
		return
	}
	log.Printf("activesession: lap finished in %s", d)
	if summary, ok := stats.SummarizeLap(lap); ok {
		log.Printf("activesession: lap stats: mean sector %s, stddev %s", summary.MeanSector, summary.StdDevSector)
	}
	b.ctx.Bus.Publish(eventbus.SaveSessionRequest(saveSessionID, saveSessionSenderAddr, b.handle))
}

// Run executes the builder's event loop: it requests the current track
// at startup, then accumulates laps and telemetry until Quit is
// received.
func (b *Builder) Run(ctx context.Context) {
	b.ctx.Bus.Publish(eventbus.DetectTrackRequest(detectTrackID, detectTrackSenderAddr))

	for {
		e, lag, err := b.ctx.Sub.Receive(ctx)
		if err != nil {
			return
		}
		if lag > 0 {
			log.Printf("activesession: subscription lagged by %d events", lag)
			continue
		}
		switch e.Kind {
		case eventbus.KindQuit:
			return
		case eventbus.KindDetectTrackResponse:
			if resp, ok := eventbus.Payload[eventbus.Response[[]session.Track]](e); ok {
				b.onTrackDetected(resp)
			}
		case eventbus.KindGnssPosition:
			if fix, ok := eventbus.Payload[session.Fix](e); ok {
				b.onPosition(fix)
			}
		case eventbus.KindLapStarted:
			b.onLapStarted()
		case eventbus.KindSectorFinished:
			if d, ok := eventbus.Payload[session.Duration](e); ok {
				b.onSectorFinished(d)
			}
		case eventbus.KindLapFinished:
			if d, ok := eventbus.Payload[session.Duration](e); ok {
				b.onLapFinished(d)
			}
		}
	}
}
