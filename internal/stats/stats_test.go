package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/session"
	"github.com/rapid-timing/rapid/internal/stats"
)

func TestSummarizeLapEmptyReturnsFalse(t *testing.T) {
	_, ok := stats.SummarizeLap(session.Lap{})
	assert.False(t, ok)
}

func TestSummarizeLapComputesMean(t *testing.T) {
	lap := session.Lap{Sectors: []session.Duration{
		session.Duration(10 * time.Second),
		session.Duration(20 * time.Second),
	}}
	summary, ok := stats.SummarizeLap(lap)
	require.True(t, ok)
	assert.Equal(t, 2, summary.SectorCount)
	assert.Equal(t, session.Duration(15*time.Second), summary.MeanSector)
	assert.Equal(t, session.Duration(30*time.Second), summary.Laptime)
}

func TestSummarizeSessionEmptyReturnsFalse(t *testing.T) {
	_, ok := stats.SummarizeSession(session.Session{})
	assert.False(t, ok)
}

func TestSummarizeSessionFindsBestLap(t *testing.T) {
	s := session.Session{Laps: []session.Lap{
		{Sectors: []session.Duration{session.Duration(30 * time.Second)}},
		{Sectors: []session.Duration{session.Duration(28 * time.Second)}},
		{Sectors: []session.Duration{session.Duration(35 * time.Second)}},
	}}
	summary, ok := stats.SummarizeSession(s)
	require.True(t, ok)
	assert.Equal(t, 3, summary.LapCount)
	assert.Equal(t, session.Duration(28*time.Second), summary.BestLap)
}
