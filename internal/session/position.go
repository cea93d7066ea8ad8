// Package session holds the durable data model shared by the timing
// engine's components: track/session definitions, lap records, and the
// GNSS fixes logged while a lap is open.
package session

import (
	"encoding/json"
	"fmt"
)

// Position is a geographic coordinate in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// Fix is a single GNSS reading: a position, a velocity, and the clock
// time and date it was captured. Velocity is in meters per second.
//
// Mirrors the original engine's GnssPosition: latitude/longitude/velocity
// are private in spirit (constructed via NewFix, read via accessors) so
// callers can't build a half-populated fix.
type Fix struct {
	position Position
	velocity float64
	time     ClockTime
	date     Date
}

// NewFix builds a Fix from its components.
func NewFix(lat, lon, velocity float64, t ClockTime, d Date) Fix {
	return Fix{
		position: Position{Latitude: lat, Longitude: lon},
		velocity: velocity,
		time:     t,
		date:     d,
	}
}

func (f Fix) Position() Position { return f.position }
func (f Fix) Latitude() float64  { return f.position.Latitude }
func (f Fix) Longitude() float64 { return f.position.Longitude }
func (f Fix) Velocity() float64  { return f.velocity }
func (f Fix) Time() ClockTime    { return f.time }
func (f Fix) Date() Date         { return f.date }

// MarshalJSON renders a Fix using the same flat field layout the original
// storage format uses, with time/date in their custom string encodings.
func (f Fix) MarshalJSON() ([]byte, error) {
	aux := struct {
		Latitude  float64   `json:"latitude"`
		Longitude float64   `json:"longitude"`
		Velocity  float64   `json:"velocity"`
		Time      ClockTime `json:"time"`
		Date      Date      `json:"date"`
	}{f.position.Latitude, f.position.Longitude, f.velocity, f.time, f.date}
	return json.Marshal(aux)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Fix) UnmarshalJSON(data []byte) error {
	var aux struct {
		Latitude  float64   `json:"latitude"`
		Longitude float64   `json:"longitude"`
		Velocity  float64   `json:"velocity"`
		Time      ClockTime `json:"time"`
		Date      Date      `json:"date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.position = Position{Latitude: aux.Latitude, Longitude: aux.Longitude}
	f.velocity = aux.Velocity
	f.time = aux.Time
	f.date = aux.Date
	return nil
}
