package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenRunsMigrations(t *testing.T) {
	db := openTestDB(t)

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'sessions'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "sessions", name)

	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'tracks'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "tracks", name)
}

func TestUpsertAndListSessionsByTrack(t *testing.T) {
	db := openTestDB(t)

	info := session.Info{
		ID:        1,
		Date:      session.NewDate(2026, time.August, 1),
		Time:      session.NewClockTime(12, 30, 5, 123),
		TrackName: "Oschersleben",
		LapCount:  12,
	}
	require.NoError(t, db.UpsertSession("oschersleben_01_08_2026_12_30_05_123", info, 1000))

	rows, err := db.ListSessionsByTrack("Oschersleben")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "oschersleben_01_08_2026_12_30_05_123", rows[0].ID)
	assert.Equal(t, 12, rows[0].LapCount)

	// Re-upserting the same id updates rather than duplicates the row.
	info.LapCount = 15
	require.NoError(t, db.UpsertSession("oschersleben_01_08_2026_12_30_05_123", info, 2000))
	rows, err = db.ListSessionsByTrack("Oschersleben")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 15, rows[0].LapCount)
}

func TestDeleteSessionRemovesRow(t *testing.T) {
	db := openTestDB(t)

	info := session.Info{TrackName: "Spa", Date: session.NewDate(2026, time.August, 1), Time: session.NewClockTime(9, 0, 0, 0)}
	require.NoError(t, db.UpsertSession("spa_01_08_2026_09_00_00_000", info, 1))
	require.NoError(t, db.DeleteSession("spa_01_08_2026_09_00_00_000"))

	rows, err := db.ListSessionsByTrack("Spa")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteSessionMissingRowIsNotAnError(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.DeleteSession("does-not-exist"))
}

func TestUpsertTrack(t *testing.T) {
	db := openTestDB(t)

	track := session.Track{
		ID:   1,
		Name: "Spa-Francorchamps",
		Sectors: []session.Position{
			{},
			{},
		},
	}
	require.NoError(t, db.UpsertTrack("spa-francorchamps", track, 42))

	var sectorCount int
	err := db.QueryRow(`SELECT sector_count FROM tracks WHERE id = ?`, "spa-francorchamps").Scan(&sectorCount)
	require.NoError(t, err)
	assert.Equal(t, 2, sectorCount)
}
