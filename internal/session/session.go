package session

import "encoding/json"

// Session is a complete recorded driving session: when it took place,
// which track it was driven on, and the laps completed during it.
type Session struct {
	ID    uint64 `json:"id"`
	Date  Date   `json:"date"`
	Time  ClockTime `json:"time"`
	Track Track  `json:"track"`
	Laps  []Lap  `json:"laps"`
}

// Info is the lightweight summary of a Session persisted alongside the
// full session data, so callers can list and filter sessions without
// reading every lap and log point back off disk.
type Info struct {
	ID        uint64 `json:"id"`
	Date      Date   `json:"date"`
	Time      ClockTime `json:"time"`
	TrackName string `json:"track_name"`
	LapCount  int    `json:"lap_count"`
}

// Info derives the summary record for a Session.
func (s Session) Info() Info {
	return Info{
		ID:        s.ID,
		Date:      s.Date,
		Time:      s.Time,
		TrackName: s.Track.Name,
		LapCount:  len(s.Laps),
	}
}

// FromJSON parses a Session from its JSON encoding.
func FromJSON(data []byte) (Session, error) {
	var s Session
	err := json.Unmarshal(data, &s)
	return s, err
}

// ToJSON renders a Session to its JSON encoding.
func ToJSON(s Session) ([]byte, error) {
	return json.Marshal(s)
}

// TrackFromJSON parses a Track from its JSON encoding.
func TrackFromJSON(data []byte) (Track, error) {
	var t Track
	err := json.Unmarshal(data, &t)
	return t, err
}

// TrackToJSON renders a Track to its JSON encoding.
func TrackToJSON(t Track) ([]byte, error) {
	return json.Marshal(t)
}

// InfoFromJSON parses an Info from its JSON encoding.
func InfoFromJSON(data []byte) (Info, error) {
	var i Info
	err := json.Unmarshal(data, &i)
	return i, err
}

// InfoToJSON renders an Info to its JSON encoding.
func InfoToJSON(i Info) ([]byte, error) {
	return json.Marshal(i)
}
