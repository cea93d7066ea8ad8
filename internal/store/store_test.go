package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapid-timing/rapid/internal/session"
	"github.com/rapid-timing/rapid/internal/store"
)

func newHandle(t *testing.T, s session.Session) *session.Handle {
	t.Helper()
	h := session.NewHandle(nil)
	h.WithWrite(func(cur **session.Session) { *cur = &s })
	return h
}

func sampleSession() session.Session {
	return session.Session{
		Date:  session.NewDate(2026, 8, 1),
		Time:  session.NewClockTime(12, 30, 5, 123),
		Track: session.Track{Name: "Oschersleben", StartLine: session.Position{Latitude: 52.0, Longitude: 11.0}},
		Laps: []session.Lap{
			{Sectors: []session.Duration{session.Duration(30_000_000_000)}},
		},
	}
}

func TestSaveWritesSessionAndInfoFiles(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	id, err := s.Save(newHandle(t, sampleSession()))
	require.NoError(t, err)
	assert.Equal(t, "oschersleben_01_08_2026_12_30_05_123", id)

	assert.FileExists(t, filepath.Join(root, "session", id+".session"))
	assert.FileExists(t, filepath.Join(root, "session", id+".info"))
}

func TestLoadSessionRoundTrips(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	original := sampleSession()
	id, err := s.Save(newHandle(t, original))
	require.NoError(t, err)

	loaded, err := s.LoadSession(id)
	require.NoError(t, err)
	assert.Equal(t, original.Track.Name, loaded.Track.Name)
	assert.Len(t, loaded.Laps, 1)
}

func TestLoadSessionMissingReturnsError(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	_, err = s.LoadSession("does_not_exist")
	assert.Error(t, err)
}

func TestLoadSessionInfosSortedAscending(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	first := sampleSession()
	first.Time = session.NewClockTime(9, 0, 0, 0)
	second := sampleSession()
	second.Time = session.NewClockTime(14, 0, 0, 0)

	_, err = s.Save(newHandle(t, second))
	require.NoError(t, err)
	_, err = s.Save(newHandle(t, first))
	require.NoError(t, err)

	infos, err := s.LoadSessionInfos()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].ID < infos[1].ID)
	assert.Equal(t, 1, infos[0].Info.LapCount)
}

func TestDeleteSessionRemovesBothFiles(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	id, err := s.Save(newHandle(t, sampleSession()))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(id))
	assert.NoFileExists(t, filepath.Join(root, "session", id+".info"))
	assert.NoFileExists(t, filepath.Join(root, "session", id+".session"))
}

// TestDeleteSessionLeaksDataFileWhenInfoAlreadyMissing reproduces the
// preserved delete-order quirk: if the info sidecar is already gone,
// deletion returns its error and the session data file is never even
// attempted, so it survives on disk.
func TestDeleteSessionLeaksDataFileWhenInfoAlreadyMissing(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	id, err := s.Save(newHandle(t, sampleSession()))
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "session", id+".info")))

	err = s.DeleteSession(id)
	assert.Error(t, err)
	assert.FileExists(t, filepath.Join(root, "session", id+".session"))
}

func TestSaveTrackAndLoadAllStoredTracks(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	track := session.Track{Name: "Spa", StartLine: session.Position{Latitude: 50.4, Longitude: 5.9}}
	require.NoError(t, s.SaveTrack("spa", track))

	ids, err := s.LoadStoredTrackIds()
	require.NoError(t, err)
	assert.Equal(t, []string{"spa"}, ids)

	tracks, errs := s.LoadAllStoredTracks()
	assert.Empty(t, errs)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Spa", tracks[0].Name)
}

func TestLoadStoredSessionIdsEmptyWhenNoSessionsSaved(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	ids, err := s.LoadStoredSessionIds()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

type fakeIndexer struct {
	sessions map[string]session.Info
	tracks   map[string]session.Track
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{sessions: map[string]session.Info{}, tracks: map[string]session.Track{}}
}

func (f *fakeIndexer) UpsertSession(id string, info session.Info, indexedAtUnix int64) error {
	f.sessions[id] = info
	return nil
}

func (f *fakeIndexer) DeleteSession(id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeIndexer) UpsertTrack(id string, t session.Track, indexedAtUnix int64) error {
	f.tracks[id] = t
	return nil
}

func TestSetIndexerKeepsCatalogInSync(t *testing.T) {
	root := t.TempDir()
	s, err := store.New(root)
	require.NoError(t, err)

	idx := newFakeIndexer()
	s.SetIndexer(idx)

	id, err := s.Save(newHandle(t, sampleSession()))
	require.NoError(t, err)
	require.Contains(t, idx.sessions, id)

	require.NoError(t, s.SaveTrack("spa", session.Track{Name: "Spa"}))
	require.Contains(t, idx.tracks, "spa")

	require.NoError(t, s.DeleteSession(id))
	assert.NotContains(t, idx.sessions, id)
}
