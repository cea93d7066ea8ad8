// Package store implements the engine's filesystem-backed session and
// track persistence: create-or-truncate-and-fsync durability, `.session`
// / `.info` / `.track` sidecar files, and request/response integration
// with the event bus.
//
// A Store instance owns its root directory exclusively: it performs no
// internal locking, so only one Store should ever point at the same
// root_dir at a time, matching the original engine's single-writer
// invariant.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rapid-timing/rapid/internal/session"
)

// Indexer receives notifications of session and track writes so a
// secondary catalog (see internal/store/index) can be kept in sync with
// the filesystem store without the store depending on how that catalog
// is implemented.
type Indexer interface {
	UpsertSession(id string, info session.Info, indexedAtUnix int64) error
	DeleteSession(id string) error
	UpsertTrack(id string, t session.Track, indexedAtUnix int64) error
}

// Store is a filesystem-based implementation of session and track
// persistence rooted at a single directory.
type Store struct {
	sessionDir string
	trackDir   string
	indexer    Indexer
	now        func() time.Time
}

// New creates (if necessary) the session and track subdirectories under
// root and returns a Store bound to them.
func New(root string) (*Store, error) {
	sessionDir := filepath.Join(root, "session")
	trackDir := filepath.Join(root, "track")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create session dir: %w", err)
	}
	if err := os.MkdirAll(trackDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create track dir: %w", err)
	}
	return &Store{sessionDir: sessionDir, trackDir: trackDir, now: time.Now}, nil
}

// SetIndexer attaches a secondary catalog to be kept in sync with every
// subsequent save, track save, and delete. It is optional: a Store with
// no indexer behaves exactly as before.
func (s *Store) SetIndexer(indexer Indexer) {
	s.indexer = indexer
}

// ID derives the canonical, on-disk session identifier from a Session's
// track name, date, and start time: "<track_lower>_<DD_MM_YYYY>_<HH_MM_SS_mmm>".
func ID(s session.Session) string {
	name := strings.ToLower(s.Track.Name)
	d := s.Date
	c := s.Time
	return fmt.Sprintf("%s_%02d_%02d_%04d_%02d_%02d_%02d_%03d",
		name, d.Day, int(d.Month), d.Year, c.Hour, c.Minute, c.Second, c.Millisecond)
}

func (s *Store) sessionFile(id string) string { return filepath.Join(s.sessionDir, id+".session") }
func (s *Store) infoFile(id string) string    { return filepath.Join(s.sessionDir, id+".info") }
func (s *Store) trackFile(id string) string   { return filepath.Join(s.trackDir, id+".track") }

// writeAll creates or truncates path, writes data, and fsyncs it before
// closing — the same create+write_all+sync_all durability sequence the
// original storage used.
func writeAll(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// Save persists a Session's current value from handle and returns its
// derived id. The session file is written before the info sidecar,
// matching the original's write order.
func (s *Store) Save(h *session.Handle) (string, error) {
	snap := h.Snapshot()
	if snap == nil {
		return "", errors.New("store: no session to save")
	}
	id := ID(*snap)
	sessionJSON, err := session.ToJSON(*snap)
	if err != nil {
		return "", fmt.Errorf("store: marshal session: %w", err)
	}
	infoJSON, err := session.InfoToJSON(snap.Info())
	if err != nil {
		return "", fmt.Errorf("store: marshal session info: %w", err)
	}
	if err := writeAll(s.sessionFile(id), sessionJSON); err != nil {
		return "", fmt.Errorf("store: write session: %w", err)
	}
	if err := writeAll(s.infoFile(id), infoJSON); err != nil {
		return "", fmt.Errorf("store: write session info: %w", err)
	}
	if s.indexer != nil {
		if err := s.indexer.UpsertSession(id, snap.Info(), s.now().Unix()); err != nil {
			log.Printf("store: index session %s: %v", id, err)
		}
	}
	return id, nil
}

// LoadSession reads and parses the session with the given id.
func (s *Store) LoadSession(id string) (session.Session, error) {
	data, err := os.ReadFile(s.sessionFile(id))
	if err != nil {
		return session.Session{}, err
	}
	return session.FromJSON(data)
}

// DeleteSession removes the session and its info sidecar.
//
// It deletes the info sidecar first; if that fails (including when it is
// already missing), the session data file is left untouched and the
// info-deletion error is returned without attempting the data file at
// all. If the info sidecar is deleted successfully but deleting the
// session data afterward fails, that second failure is swallowed and
// success is reported anyway. Both quirks are preserved verbatim from
// the original engine rather than hardened, per its own design notes.
func (s *Store) DeleteSession(id string) error {
	if err := os.Remove(s.infoFile(id)); err != nil {
		return err
	}
	_ = os.Remove(s.sessionFile(id))
	if s.indexer != nil {
		_ = s.indexer.DeleteSession(id)
	}
	return nil
}

// SessionEntry pairs a stored session's file-stem id (the value used to
// load, save, and delete it) with its parsed summary info.
type SessionEntry struct {
	ID   string
	Info session.Info
}

// LoadSessionInfos scans the session directory for `.info` sidecars,
// parses each, and returns them sorted by id ascending. It returns
// fs.ErrNotExist if the session directory itself is missing.
func (s *Store) LoadSessionInfos() ([]SessionEntry, error) {
	entries, err := os.ReadDir(s.sessionDir)
	if err != nil {
		return nil, err
	}
	var result []SessionEntry
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".info" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".info")
		data, err := os.ReadFile(filepath.Join(s.sessionDir, entry.Name()))
		if err != nil {
			continue
		}
		info, err := session.InfoFromJSON(data)
		if err != nil {
			continue
		}
		result = append(result, SessionEntry{ID: id, Info: info})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// idsWithExtension lists the file-stem ids of every file in dir with the
// given extension (without the leading dot), sorted ascending.
func idsWithExtension(dir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != "."+extension {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, "."+extension))
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadStoredSessionIds returns the ids of every stored session.
func (s *Store) LoadStoredSessionIds() ([]string, error) {
	infos, err := s.LoadSessionInfos()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, entry := range infos {
		ids[i] = entry.ID
	}
	return ids, nil
}

// LoadStoredTrackIds returns the ids of every stored track.
func (s *Store) LoadStoredTrackIds() ([]string, error) {
	ids, err := idsWithExtension(s.trackDir, "track")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// SaveTrack persists a track definition under the given id.
func (s *Store) SaveTrack(id string, t session.Track) error {
	data, err := session.TrackToJSON(t)
	if err != nil {
		return fmt.Errorf("store: marshal track: %w", err)
	}
	if err := writeAll(s.trackFile(id), data); err != nil {
		return err
	}
	if s.indexer != nil {
		if err := s.indexer.UpsertTrack(id, t, s.now().Unix()); err != nil {
			log.Printf("store: index track %s: %v", id, err)
		}
	}
	return nil
}

// LoadAllStoredTracks reads and parses every stored track, skipping (and
// logging via the caller) any that fail to load or parse.
func (s *Store) LoadAllStoredTracks() ([]session.Track, []error) {
	ids, err := idsWithExtension(s.trackDir, "track")
	if err != nil {
		return nil, []error{err}
	}
	var tracks []session.Track
	var errs []error
	for _, id := range ids {
		data, err := os.ReadFile(s.trackFile(id))
		if err != nil {
			errs = append(errs, fmt.Errorf("load track %s: %w", id, err))
			continue
		}
		t, err := session.TrackFromJSON(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse track %s: %w", id, err))
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, errs
}
