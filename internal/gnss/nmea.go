// Package gnss provides position sources for the lap timer: a fixed
// constant-velocity replay source for bench testing, a serial source for
// live NMEA receivers, a pcap replay source for recorded captures, and a
// gpsd TCP/JSON client.
package gnss

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FixQuality mirrors the GGA sentence's fix-quality indicator.
type FixQuality string

const (
	FixQualityInvalid    FixQuality = "invalid"
	FixQualityGPS        FixQuality = "gps"
	FixQualityDGPS       FixQuality = "dgps"
	FixQualityPPS        FixQuality = "pps"
	FixQualityRTKFixed   FixQuality = "rtk_fixed"
	FixQualityRTKFloat   FixQuality = "rtk_float"
	FixQualityEstimated  FixQuality = "estimated"
	FixQualityUnknownFix FixQuality = "unknown"
)

// NMEAFix is the parsed content of a single GGA or RMC sentence, whichever
// fields that sentence type carries; callers merge consecutive sentences
// from the same receiver to build a complete position + velocity sample.
type NMEAFix struct {
	HasPosition      bool
	Latitude         float64
	Longitude        float64
	HasVelocity      bool
	VelocityKnots    float64
	HasQuality       bool
	Quality          FixQuality
	SatellitesInView int
	HasTime          bool
	Time             time.Time
}

// ParseSentence parses a single NMEA 0183 sentence line ($GPGGA, $GPRMC,
// and the GN/GL/GA talker-id variants). Unrecognized sentence types and
// malformed fields return ok=false without error, since a GNSS stream
// commonly interleaves sentence types the caller doesn't need.
func ParseSentence(line string) (NMEAFix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return NMEAFix{}, false
	}
	if idx := strings.IndexByte(line, '*'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Split(line[1:], ",")
	if len(fields) == 0 {
		return NMEAFix{}, false
	}
	sentenceType := fields[0]
	if len(sentenceType) < 5 {
		return NMEAFix{}, false
	}
	switch sentenceType[2:5] {
	case "GGA":
		return parseGGA(fields)
	case "RMC":
		return parseRMC(fields)
	default:
		return NMEAFix{}, false
	}
}

func parseGGA(f []string) (NMEAFix, bool) {
	if len(f) < 7 {
		return NMEAFix{}, false
	}
	lat, okLat := parseLatitude(f[2], f[3])
	lon, okLon := parseLongitude(f[4], f[5])
	if !okLat || !okLon {
		return NMEAFix{}, false
	}
	fix := NMEAFix{HasPosition: true, Latitude: lat, Longitude: lon}
	if q, err := strconv.Atoi(f[6]); err == nil {
		fix.HasQuality = true
		fix.Quality = qualityFromIndicator(q)
	}
	if len(f) > 7 {
		if n, err := strconv.Atoi(f[7]); err == nil {
			fix.SatellitesInView = n
		}
	}
	return fix, true
}

func parseRMC(f []string) (NMEAFix, bool) {
	if len(f) < 10 {
		return NMEAFix{}, false
	}
	if f[2] != "A" {
		// status "V" (void/no fix) — nothing usable in this sentence.
		return NMEAFix{}, false
	}
	lat, okLat := parseLatitude(f[3], f[4])
	lon, okLon := parseLongitude(f[5], f[6])
	if !okLat || !okLon {
		return NMEAFix{}, false
	}
	fix := NMEAFix{HasPosition: true, Latitude: lat, Longitude: lon}
	if knots, err := strconv.ParseFloat(f[7], 64); err == nil {
		fix.HasVelocity = true
		fix.VelocityKnots = knots
	}
	if t, ok := parseUTCDateTime(f[1], f[9]); ok {
		fix.HasTime = true
		fix.Time = t
	}
	return fix, true
}

func qualityFromIndicator(q int) FixQuality {
	switch q {
	case 0:
		return FixQualityInvalid
	case 1:
		return FixQualityGPS
	case 2:
		return FixQualityDGPS
	case 3:
		return FixQualityPPS
	case 4:
		return FixQualityRTKFixed
	case 5:
		return FixQualityRTKFloat
	case 6:
		return FixQualityEstimated
	default:
		return FixQualityUnknownFix
	}
}

// parseLatitude parses NMEA "ddmm.mmmm" + hemisphere ("N"/"S") fields.
func parseLatitude(raw, hemisphere string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	if len(raw) < 4 {
		return 0, false
	}
	deg, err := strconv.Atoi(raw[:2])
	if err != nil {
		return 0, false
	}
	min, err := strconv.ParseFloat(raw[2:], 64)
	if err != nil {
		return 0, false
	}
	val := float64(deg) + min/60
	if hemisphere == "S" {
		val = -val
	}
	return val, true
}

// parseLongitude parses NMEA "dddmm.mmmm" + hemisphere ("E"/"W") fields.
func parseLongitude(raw, hemisphere string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	if len(raw) < 5 {
		return 0, false
	}
	deg, err := strconv.Atoi(raw[:3])
	if err != nil {
		return 0, false
	}
	min, err := strconv.ParseFloat(raw[3:], 64)
	if err != nil {
		return 0, false
	}
	val := float64(deg) + min/60
	if hemisphere == "W" {
		val = -val
	}
	return val, true
}

// parseUTCDateTime combines RMC's "hhmmss.sss" time field with its
// "ddmmyy" date field into a UTC time.Time.
func parseUTCDateTime(timeField, dateField string) (time.Time, bool) {
	if len(timeField) < 6 || len(dateField) != 6 {
		return time.Time{}, false
	}
	layout := "020106 150405"
	s := fmt.Sprintf("%s %s", dateField, timeField[:6])
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
