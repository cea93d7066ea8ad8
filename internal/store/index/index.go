// Package index maintains a queryable SQLite index of stored sessions
// and tracks alongside the authoritative filesystem store, the way the
// teacher project layers a SQLite catalog (with golang-migrate schema
// migrations and a tailsql debug console) on top of its primary data.
//
// The filesystem store (internal/store) remains authoritative; this
// index exists purely to make "which sessions do we have" queryable
// without scanning the session directory, and to expose that data for
// ad-hoc debugging through tailsql.
package index

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/rapid-timing/rapid/internal/session"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is a SQLite-backed index of sessions and tracks.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the index database at path and
// brings it up to the latest migration.
func Open(path string) (*DB, error) {
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	if err := applyPragmas(raw); err != nil {
		return nil, err
	}
	db := &DB{raw}
	if err := db.migrateUp(); err != nil {
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("index: apply pragma %q: %w", p, err)
		}
	}
	return nil
}

func (db *DB) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("index: migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("index: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("index: migrate instance: %w", err)
	}
	// m.Close() is intentionally not called: the sqlite driver's Close
	// would close the shared *sql.DB this DB still owns.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("index: migrate up: %w", err)
	}
	return nil
}

// UpsertSession records (or refreshes) a session's summary row.
func (db *DB) UpsertSession(id string, info session.Info, indexedAtUnix int64) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, track_name, date, time, lap_count, indexed_at_unix)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			track_name = excluded.track_name,
			date = excluded.date,
			time = excluded.time,
			lap_count = excluded.lap_count,
			indexed_at_unix = excluded.indexed_at_unix
	`, id, info.TrackName, info.Date.String(), info.Time.String(), info.LapCount, indexedAtUnix)
	if err != nil {
		return fmt.Errorf("index: upsert session %s: %w", id, err)
	}
	return nil
}

// DeleteSession removes a session's row from the index. It is not an
// error for the row to already be absent.
func (db *DB) DeleteSession(id string) error {
	if _, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete session %s: %w", id, err)
	}
	return nil
}

// UpsertTrack records (or refreshes) a track's summary row.
func (db *DB) UpsertTrack(id string, t session.Track, indexedAtUnix int64) error {
	_, err := db.Exec(`
		INSERT INTO tracks (id, name, sector_count, indexed_at_unix)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sector_count = excluded.sector_count,
			indexed_at_unix = excluded.indexed_at_unix
	`, id, t.Name, len(t.Sectors), indexedAtUnix)
	if err != nil {
		return fmt.Errorf("index: upsert track %s: %w", id, err)
	}
	return nil
}

// SessionRow is a single indexed session summary row.
type SessionRow struct {
	ID        string
	TrackName string
	Date      string
	Time      string
	LapCount  int
}

// ListSessionsByTrack returns every indexed session for a given track
// name, most recent first.
func (db *DB) ListSessionsByTrack(trackName string) ([]SessionRow, error) {
	rows, err := db.Query(`
		SELECT id, track_name, date, time, lap_count FROM sessions
		WHERE track_name = ?
		ORDER BY indexed_at_unix DESC
	`, trackName)
	if err != nil {
		return nil, fmt.Errorf("index: list sessions for %s: %w", trackName, err)
	}
	defer rows.Close()
	var result []SessionRow
	for rows.Next() {
		var r SessionRow
		if err := rows.Scan(&r.ID, &r.TrackName, &r.Date, &r.Time, &r.LapCount); err != nil {
			return nil, fmt.Errorf("index: scan session row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// AttachAdminRoutes mounts a tailsql debug console for ad-hoc querying of
// the index, served only over the given mux's /debug/ prefix.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
	if err != nil {
		return fmt.Errorf("index: create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://rapid-index.db", db.DB, &tailsql.DBOptions{Label: "Session Index"})
	debug.Handle("tailsql/", "SQL live debugging of the session index", tsql.NewMux())
	return nil
}
