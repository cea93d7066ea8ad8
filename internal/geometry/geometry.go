// Package geometry implements the flat-earth distance approximation and
// line-crossing predicate the timing engine uses to decide when a GNSS
// fix has passed a track marker.
package geometry

import (
	"math"

	"github.com/rapid-timing/rapid/internal/session"
)

// degToRad converts degrees to radians. 0.01745 is the approximation the
// original algorithm uses in place of math.Pi/180; kept verbatim so the
// distance values this package produces match the original engine's
// bit-for-bit, not just to rounding error.
const degToRad = 0.01745

// Distance approximates the distance in meters between two geographic
// positions using an equirectangular projection around their midpoint
// latitude. It is only accurate over short distances (a few kilometers),
// which is the whole of its intended use: checking proximity to a single
// track's marker points.
func Distance(a, b session.Position) float64 {
	midLat := (a.Latitude + b.Latitude) / 2.0 * degToRad
	dx := 111300.0 * math.Cos(midLat) * (a.Longitude - b.Longitude)
	dy := 111300.0 * (a.Latitude - b.Latitude)
	return math.Sqrt(dx*dx + dy*dy)
}

// TracksWithinRadius returns the tracks whose start line lies within
// radiusMeters of pos, inclusive. The radius comparison is "<=" rather
// than "<" so a fix landing exactly on the boundary still counts as on
// track.
func TracksWithinRadius(tracks []session.Track, pos session.Position, radiusMeters float64) []session.Track {
	var detected []session.Track
	for _, t := range tracks {
		if Distance(t.StartLine, pos) <= radiusMeters {
			detected = append(detected, t)
		}
	}
	return detected
}

// DetectionRange is the default maximum distance, in meters, at which a
// fix is considered close enough to a marker to participate in a
// crossing test.
const DetectionRange = 25.0

// Window holds the four most recent positions used to decide whether a
// marker has been crossed, ordered newest-first (index 0 is the latest
// fix, index 3 the oldest of the four).
type Window [4]session.Position

// Crossed reports whether the vehicle's recent track (held in w, newest
// first) passed the given marker position.
//
// All four window points must lie within DetectionRange of the marker.
// Reading the window from oldest to newest, the distance to the marker
// must strictly decrease and then strictly increase — the car got
// closer, then moved away — with the middle two distances unequal. This
// predicate is intentionally asymmetric: it rejects the degenerate case
// of the car approaching and then retreating at identical distances, and
// is preserved exactly as the original engine defines it even though no
// rationale for the particular inequality choices was ever recorded.
func Crossed(w Window, marker session.Position) bool {
	var d [4]float64
	for i, p := range w {
		d[i] = Distance(p, marker)
		if d[i] >= DetectionRange {
			return false
		}
	}
	return d[0] > d[1] && d[2] < d[3] && d[1] != d[2]
}
