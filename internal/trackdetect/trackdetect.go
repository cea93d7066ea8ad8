// Package trackdetect resolves which track the vehicle is currently on,
// queuing detection requests until both a position and the track catalog
// are available.
package trackdetect

import (
	"context"
	"log"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/geometry"
	"github.com/rapid-timing/rapid/internal/session"
)

// loadTracksID and loadTracksSenderAddr identify this module's startup
// request for the stored track catalog.
const (
	loadTracksID         = 0
	loadTracksSenderAddr = 20
)

// DetectionRadiusMeters is the default proximity threshold for
// considering a track "detected" at the current position.
const DetectionRadiusMeters = 500

type pendingRequest struct {
	id         uint64
	senderAddr uint64
}

// Detector answers DetectTrackRequest events once it has both a current
// position and a loaded track catalog.
type Detector struct {
	ctx          *eventbus.ModuleCtx
	radiusMeters float64
	position     *session.Position
	pending      []pendingRequest
	tracks       []session.Track
}

// New constructs a Detector using the default detection radius.
func New(ctx *eventbus.ModuleCtx) *Detector {
	return &Detector{ctx: ctx, radiusMeters: DetectionRadiusMeters}
}

// NewWithRadius constructs a Detector with an explicit detection radius,
// for tuning or tests.
func NewWithRadius(ctx *eventbus.ModuleCtx, radiusMeters float64) *Detector {
	return &Detector{ctx: ctx, radiusMeters: radiusMeters}
}

// handlePending drains the pending request queue once both a position
// and a non-empty track catalog are available, answering every queued
// request with the same snapshot of detected tracks.
func (d *Detector) handlePending() {
	if d.position == nil {
		return
	}
	if len(d.pending) == 0 || len(d.tracks) == 0 {
		return
	}
	detected := geometry.TracksWithinRadius(d.tracks, *d.position, d.radiusMeters)
	for _, req := range d.pending {
		d.ctx.Bus.Publish(eventbus.DetectTrackResponse(req.id, req.senderAddr, detected))
		log.Printf("trackdetect: responded to request id %d, sender %d with %d track(s)", req.id, req.senderAddr, len(detected))
	}
	d.pending = nil
}

// Run executes the detector's event loop: it requests the stored track
// catalog at startup, then reacts to position updates, catalog
// responses, and detection requests until Quit is received.
func (d *Detector) Run(ctx context.Context) {
	d.ctx.Bus.Publish(eventbus.LoadAllStoredTracksRequest(loadTracksID, loadTracksSenderAddr))

	for {
		e, lag, err := d.ctx.Sub.Receive(ctx)
		if err != nil {
			return
		}
		if lag > 0 {
			log.Printf("trackdetect: subscription lagged by %d events", lag)
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
			pos := fix.Position()
			d.position = &pos
			d.handlePending()
		case eventbus.KindLoadAllStoredTracksResponse:
			resp, ok := eventbus.Payload[eventbus.Response[[]session.Track]](e)
			if !ok {
				continue
			}
			if resp.ID != loadTracksID || resp.ReceiverAddr != loadTracksSenderAddr {
				continue
			}
			d.tracks = resp.Data
			d.handlePending()
		case eventbus.KindDetectTrackRequest:
			req, ok := eventbus.Payload[eventbus.Request[eventbus.Empty]](e)
			if !ok {
				continue
			}
			log.Printf("trackdetect: received detection request id %d, sender %d", req.ID, req.SenderAddr)
			d.pending = append(d.pending, pendingRequest{id: req.ID, senderAddr: req.SenderAddr})
			d.handlePending()
		}
	}
}
