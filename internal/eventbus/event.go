package eventbus

import (
	"github.com/rapid-timing/rapid/internal/session"
)

// Kind identifies the shape of an Event's payload. Matching on Kind
// (rather than type-switching on Data) lets WaitForEvent and module loops
// compare a single small value instead of reflecting over interfaces.
type Kind int

const (
	KindQuit Kind = iota
	KindGnssPosition
	KindGnssInformation
	KindLapStarted
	KindLapFinished
	KindSectorFinished
	KindCurrentLaptime

	KindDetectTrackRequest
	KindDetectTrackResponse

	KindLoadStoredSessionIdsRequest
	KindLoadStoredSessionIdsResponse
	KindSaveSessionRequest
	KindSaveSessionResponse
	KindLoadSessionRequest
	KindLoadSessionResponse
	KindDeleteSessionRequest
	KindDeleteSessionResponse

	KindLoadStoredTrackIdsRequest
	KindLoadStoredTrackIdsResponse
	KindLoadAllStoredTracksRequest
	KindLoadAllStoredTracksResponse
)

func (k Kind) String() string {
	switch k {
	case KindQuit:
		return "Quit"
	case KindGnssPosition:
		return "GnssPosition"
	case KindGnssInformation:
		return "GnssInformation"
	case KindLapStarted:
		return "LapStarted"
	case KindLapFinished:
		return "LapFinished"
	case KindSectorFinished:
		return "SectorFinished"
	case KindCurrentLaptime:
		return "CurrentLaptime"
	case KindDetectTrackRequest:
		return "DetectTrackRequest"
	case KindDetectTrackResponse:
		return "DetectTrackResponse"
	case KindLoadStoredSessionIdsRequest:
		return "LoadStoredSessionIdsRequest"
	case KindLoadStoredSessionIdsResponse:
		return "LoadStoredSessionIdsResponse"
	case KindSaveSessionRequest:
		return "SaveSessionRequest"
	case KindSaveSessionResponse:
		return "SaveSessionResponse"
	case KindLoadSessionRequest:
		return "LoadSessionRequest"
	case KindLoadSessionResponse:
		return "LoadSessionResponse"
	case KindDeleteSessionRequest:
		return "DeleteSessionRequest"
	case KindDeleteSessionResponse:
		return "DeleteSessionResponse"
	case KindLoadStoredTrackIdsRequest:
		return "LoadStoredTrackIdsRequest"
	case KindLoadStoredTrackIdsResponse:
		return "LoadStoredTrackIdsResponse"
	case KindLoadAllStoredTracksRequest:
		return "LoadAllStoredTracksRequest"
	case KindLoadAllStoredTracksResponse:
		return "LoadAllStoredTracksResponse"
	default:
		return "Unknown"
	}
}

// Event is the single envelope type that flows through the bus. Data
// holds the Kind-specific payload; callers use Payload[T] to recover it.
type Event struct {
	Kind Kind
	Data any
}

// Request is a correlation envelope for a one-way ask: ID is allocated by
// the originator and echoed back in the matching Response; SenderAddr
// identifies the originating module so the response can be routed back
// by value, not by pointer.
type Request[T any] struct {
	ID         uint64
	SenderAddr uint64
	Data       T
}

// Response is the answer to a Request, echoing the same ID and the
// sender's address (renamed ReceiverAddr from the responder's point of
// view) so callers can match it with Payload plus a manual ID/addr check
// or with WaitForEvent's matcher.
type Response[T any] struct {
	ID           uint64
	ReceiverAddr uint64
	Data         T
}

// Payload recovers a typed payload from an Event's Data field. The
// second return value is false if Data does not hold a T.
func Payload[T any](e Event) (T, bool) {
	v, ok := e.Data.(T)
	return v, ok
}

// Empty is the payload type for request kinds that carry no data, the Go
// analogue of the original engine's Request<()>.
type Empty struct{}

// Quit builds the event published to tell every module to stop.
func Quit() Event { return Event{Kind: KindQuit} }

// GnssPosition wraps a logged fix as a position event.
func GnssPosition(fix session.Fix) Event {
	return Event{Kind: KindGnssPosition, Data: fix}
}

// Information carries receiver/satellite status, independent of position.
type Information struct {
	SatellitesInView int
	FixQuality       string
}

// GnssInformation wraps receiver status as an information event.
func GnssInformation(info Information) Event {
	return Event{Kind: KindGnssInformation, Data: info}
}

// LapStarted marks the beginning of a new lap.
func LapStarted() Event { return Event{Kind: KindLapStarted} }

// LapFinished carries the completed lap's total duration.
func LapFinished(d session.Duration) Event {
	return Event{Kind: KindLapFinished, Data: d}
}

// SectorFinished carries a single sector's duration.
func SectorFinished(d session.Duration) Event {
	return Event{Kind: KindSectorFinished, Data: d}
}

// CurrentLaptime reports the running lap time, for display/reporting
// consumers.
func CurrentLaptime(d session.Duration) Event {
	return Event{Kind: KindCurrentLaptime, Data: d}
}

// DetectTrackRequest asks the track detector which tracks the current
// position lies within.
func DetectTrackRequest(id, senderAddr uint64) Event {
	return Event{Kind: KindDetectTrackRequest, Data: Request[Empty]{ID: id, SenderAddr: senderAddr}}
}

// DetectTrackResponse answers a DetectTrackRequest with the matching
// tracks, in detection order.
func DetectTrackResponse(id, receiverAddr uint64, tracks []session.Track) Event {
	return Event{Kind: KindDetectTrackResponse, Data: Response[[]session.Track]{ID: id, ReceiverAddr: receiverAddr, Data: tracks}}
}

// LoadAllStoredTracksRequest asks the store to load its full track
// catalog.
func LoadAllStoredTracksRequest(id, senderAddr uint64) Event {
	return Event{Kind: KindLoadAllStoredTracksRequest, Data: Request[Empty]{ID: id, SenderAddr: senderAddr}}
}

// LoadAllStoredTracksResponse answers with the full track catalog.
func LoadAllStoredTracksResponse(id, receiverAddr uint64, tracks []session.Track) Event {
	return Event{Kind: KindLoadAllStoredTracksResponse, Data: Response[[]session.Track]{ID: id, ReceiverAddr: receiverAddr, Data: tracks}}
}

// LoadStoredTrackIdsRequest asks the store to enumerate track ids only.
func LoadStoredTrackIdsRequest(id, senderAddr uint64) Event {
	return Event{Kind: KindLoadStoredTrackIdsRequest, Data: Request[Empty]{ID: id, SenderAddr: senderAddr}}
}

// LoadStoredTrackIdsResponse answers with the enumerated track ids.
func LoadStoredTrackIdsResponse(id, receiverAddr uint64, ids []string) Event {
	return Event{Kind: KindLoadStoredTrackIdsResponse, Data: Response[[]string]{ID: id, ReceiverAddr: receiverAddr, Data: ids}}
}

// LoadStoredSessionIdsRequest asks the store to enumerate session ids.
func LoadStoredSessionIdsRequest(id, senderAddr uint64) Event {
	return Event{Kind: KindLoadStoredSessionIdsRequest, Data: Request[Empty]{ID: id, SenderAddr: senderAddr}}
}

// LoadStoredSessionIdsResponse answers with the enumerated session ids.
func LoadStoredSessionIdsResponse(id, receiverAddr uint64, ids []string) Event {
	return Event{Kind: KindLoadStoredSessionIdsResponse, Data: Response[[]string]{ID: id, ReceiverAddr: receiverAddr, Data: ids}}
}

// SaveSessionRequest asks the store to persist a shared session handle.
func SaveSessionRequest(id, senderAddr uint64, handle *session.Handle) Event {
	return Event{Kind: KindSaveSessionRequest, Data: Request[*session.Handle]{ID: id, SenderAddr: senderAddr, Data: handle}}
}

// SaveResult is the outcome of a save request: either the assigned
// session id, or an error.
type SaveResult struct {
	ID  string
	Err error
}

// SaveSessionResponse answers a SaveSessionRequest.
func SaveSessionResponse(id, receiverAddr uint64, result SaveResult) Event {
	return Event{Kind: KindSaveSessionResponse, Data: Response[SaveResult]{ID: id, ReceiverAddr: receiverAddr, Data: result}}
}

// LoadSessionRequest asks the store to load a session by id.
func LoadSessionRequest(id, senderAddr uint64, sessionID string) Event {
	return Event{Kind: KindLoadSessionRequest, Data: Request[string]{ID: id, SenderAddr: senderAddr, Data: sessionID}}
}

// LoadResult is the outcome of a load request: either the loaded
// session, or an error.
type LoadResult struct {
	Session session.Session
	Err     error
}

// LoadSessionResponse answers a LoadSessionRequest.
func LoadSessionResponse(id, receiverAddr uint64, result LoadResult) Event {
	return Event{Kind: KindLoadSessionResponse, Data: Response[LoadResult]{ID: id, ReceiverAddr: receiverAddr, Data: result}}
}

// DeleteSessionRequest asks the store to delete a session by id.
func DeleteSessionRequest(id, senderAddr uint64, sessionID string) Event {
	return Event{Kind: KindDeleteSessionRequest, Data: Request[string]{ID: id, SenderAddr: senderAddr, Data: sessionID}}
}

// DeleteSessionResponse answers a DeleteSessionRequest.
func DeleteSessionResponse(id, receiverAddr uint64, err error) Event {
	return Event{Kind: KindDeleteSessionResponse, Data: Response[error]{ID: id, ReceiverAddr: receiverAddr, Data: err}}
}
