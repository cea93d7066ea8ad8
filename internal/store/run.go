package store

import (
	"context"
	"log"

	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/session"
)

// Run wires the Store into the event bus: it answers every storage
// request kind until Quit is received or the context is cancelled.
func (s *Store) Run(ctx context.Context, mctx *eventbus.ModuleCtx) {
	for {
		e, lag, err := mctx.Sub.Receive(ctx)
		if err != nil {
			return
		}
		if lag > 0 {
			log.Printf("store: subscription lagged by %d events", lag)
			continue
		}
		switch e.Kind {
		case eventbus.KindQuit:
			return

		case eventbus.KindLoadStoredSessionIdsRequest:
			req, ok := eventbus.Payload[eventbus.Request[eventbus.Empty]](e)
			if !ok {
				continue
			}
			ids, err := s.LoadStoredSessionIds()
			if err != nil {
				log.Printf("store: load stored session ids: %v", err)
				ids = nil
			}
			mctx.Bus.Publish(eventbus.LoadStoredSessionIdsResponse(req.ID, req.SenderAddr, ids))

		case eventbus.KindSaveSessionRequest:
			req, ok := eventbus.Payload[eventbus.Request[*session.Handle]](e)
			if !ok {
				continue
			}
			id, err := s.Save(req.Data)
			mctx.Bus.Publish(eventbus.SaveSessionResponse(req.ID, req.SenderAddr, eventbus.SaveResult{ID: id, Err: err}))
			if err != nil {
				log.Printf("store: save session failed: %v", err)
			}

		case eventbus.KindLoadSessionRequest:
			req, ok := eventbus.Payload[eventbus.Request[string]](e)
			if !ok {
				continue
			}
			loaded, err := s.LoadSession(req.Data)
			mctx.Bus.Publish(eventbus.LoadSessionResponse(req.ID, req.SenderAddr, eventbus.LoadResult{Session: loaded, Err: err}))

		case eventbus.KindDeleteSessionRequest:
			req, ok := eventbus.Payload[eventbus.Request[string]](e)
			if !ok {
				continue
			}
			err := s.DeleteSession(req.Data)
			mctx.Bus.Publish(eventbus.DeleteSessionResponse(req.ID, req.SenderAddr, err))

		case eventbus.KindLoadStoredTrackIdsRequest:
			req, ok := eventbus.Payload[eventbus.Request[eventbus.Empty]](e)
			if !ok {
				continue
			}
			ids, err := s.LoadStoredTrackIds()
			if err != nil {
				log.Printf("store: load stored track ids: %v", err)
				ids = nil
			}
			mctx.Bus.Publish(eventbus.LoadStoredTrackIdsResponse(req.ID, req.SenderAddr, ids))

		case eventbus.KindLoadAllStoredTracksRequest:
			req, ok := eventbus.Payload[eventbus.Request[eventbus.Empty]](e)
			if !ok {
				continue
			}
			tracks, errs := s.LoadAllStoredTracks()
			for _, lerr := range errs {
				log.Printf("store: %v", lerr)
			}
			mctx.Bus.Publish(eventbus.LoadAllStoredTracksResponse(req.ID, req.SenderAddr, tracks))
		}
	}
}
