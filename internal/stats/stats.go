// Package stats computes read-only summary statistics over lap and
// session timing data, the way the teacher project leans on gonum/stat
// for percentile and mean/stddev reporting over a series of samples.
package stats

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rapid-timing/rapid/internal/session"
)

// LapSummary holds the descriptive statistics of a single lap's sector
// times.
type LapSummary struct {
	SectorCount  int
	MeanSector   session.Duration
	StdDevSector session.Duration
	Laptime      session.Duration
}

// SummarizeLap computes sector-time statistics for a lap. The second
// return value is false if the lap has no recorded sectors, in which
// case there is nothing meaningful to summarize.
func SummarizeLap(lap session.Lap) (LapSummary, bool) {
	if len(lap.Sectors) == 0 {
		return LapSummary{}, false
	}
	samples := make([]float64, len(lap.Sectors))
	for i, s := range lap.Sectors {
		samples[i] = float64(s)
	}
	mean, stddev := stat.MeanStdDev(samples, nil)
	return LapSummary{
		SectorCount:  len(lap.Sectors),
		MeanSector:   session.Duration(mean),
		StdDevSector: session.Duration(stddev),
		Laptime:      lap.Laptime(),
	}, true
}

// SessionSummary holds descriptive statistics across every lap in a
// session.
type SessionSummary struct {
	LapCount    int
	BestLap     session.Duration
	MeanLap     session.Duration
	StdDevLap   session.Duration
	MedianLap   session.Duration
	Percentile85 session.Duration
}

// SummarizeSession computes lap-time statistics across a session. The
// second return value is false if the session has no completed laps.
func SummarizeSession(s session.Session) (SessionSummary, bool) {
	laps := s.Laps
	if len(laps) == 0 {
		return SessionSummary{}, false
	}
	samples := make([]float64, len(laps))
	best := laps[0].Laptime()
	for i, l := range laps {
		t := l.Laptime()
		samples[i] = float64(t)
		if t < best {
			best = t
		}
	}

	sorted := append([]float64(nil), samples...)
	sortFloat64s(sorted)

	mean, stddev := stat.MeanStdDev(samples, nil)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p85 := stat.Quantile(0.85, stat.Empirical, sorted, nil)

	return SessionSummary{
		LapCount:     len(laps),
		BestLap:      best,
		MeanLap:      session.Duration(mean),
		StdDevLap:    session.Duration(stddev),
		MedianLap:    session.Duration(median),
		Percentile85: session.Duration(p85),
	}, true
}

func sortFloat64s(xs []float64) {
	// stat.Quantile requires its input sorted ascending; insertion sort
	// is plenty for the handful of laps a single session ever holds.
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// durationSeconds is a small helper kept for callers rendering a
// session summary as human-readable seconds.
func durationSeconds(d session.Duration) float64 {
	return time.Duration(d).Seconds()
}
