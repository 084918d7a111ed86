// Package store persists profiles and session logs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/tturner/smiteclick/internal/settings"
)

var (
	ErrProfileNameConflict = errors.New("profile name already exists")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrLogNotFound         = errors.New("log entry not found")
	ErrPersistence         = errors.New("persistence error")
)

// PersistenceError wraps every driver failure. errors.Is(err, ErrPersistence)
// matches it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

var schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		settings TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		duration_seconds REAL NOT NULL,
		total_clicks INTEGER NOT NULL
	);
`

// ProfileSummary is a row of the profile list.
type ProfileSummary struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Profile is a named, immutable settings record.
type Profile struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Settings settings.Record `json:"settings"`
}

// LogEntry is one completed click session.
type LogEntry struct {
	ID              int64     `db:"id" json:"id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	DurationSeconds float64   `db:"duration_seconds" json:"duration_seconds"`
	ClickCount      int64     `db:"total_clicks" json:"click_count"`
}

type profileRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Settings string `db:"settings"`
}

func (r profileRow) decode() (*Profile, error) {
	rec := settings.Record{}
	if err := json.Unmarshal([]byte(r.Settings), &rec); err != nil {
		return nil, persistErr(fmt.Sprintf("decode profile %q", r.Name), err)
	}
	return &Profile{ID: r.ID, Name: r.Name, Settings: rec}, nil
}

// Store is safe for concurrent use.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open connects to (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	v := url.Values{}
	v.Add("_fk", "on")
	v.Add("_busy_timeout", "5000")
	if path != ":memory:" {
		v.Add("_journal_mode", "WAL")
	}
	dsn := fmt.Sprintf("file:%s?%s", path, v.Encode())
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, persistErr("open database", err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, persistErr("create schema", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return persistErr("close database", err)
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("profile name is required")
	}
	return name, nil
}

// SaveProfile stores rec under a new name. An existing name yields
// ErrProfileNameConflict.
func (s *Store) SaveProfile(ctx context.Context, name string, rec settings.Record) (int64, error) {
	name, err := normalizeName(name)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode profile %q: %w", name, err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO profiles (name, settings) VALUES (?, ?)`, name, string(data))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", ErrProfileNameConflict, name)
		}
		return 0, persistErr("save profile", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("save profile", err)
	}
	return id, nil
}

// ReplaceProfile creates or overwrites the profile called name.
func (s *Store) ReplaceProfile(ctx context.Context, name string, rec settings.Record) (int64, error) {
	name, err := normalizeName(name)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode profile %q: %w", name, err)
	}
	var id int64
	err = s.db.GetContext(ctx, &id, `
		INSERT INTO profiles (name, settings) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET settings = excluded.settings
		RETURNING id`, name, string(data))
	if err != nil {
		return 0, persistErr("replace profile", err)
	}
	return id, nil
}

// ListProfiles returns every profile ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]ProfileSummary, error) {
	out := []ProfileSummary{}
	if err := s.db.SelectContext(ctx, &out, `SELECT id, name FROM profiles ORDER BY name COLLATE NOCASE`); err != nil {
		return nil, persistErr("list profiles", err)
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, settings FROM profiles WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, persistErr("get profile", err)
	}
	return row.decode()
}

func (s *Store) GetProfileByName(ctx context.Context, name string) (*Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, settings FROM profiles WHERE name = ?`, strings.TrimSpace(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, persistErr("get profile", err)
	}
	return row.decode()
}

func (s *Store) DeleteProfile(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete profile", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return persistErr("delete profile", err)
	} else if n == 0 {
		return fmt.Errorf("%w: id %d", ErrProfileNotFound, id)
	}
	return nil
}

// AddLog appends a finished session and returns its id.
func (s *Store) AddLog(ctx context.Context, e LogEntry) (int64, error) {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO logs (start_time, end_time, duration_seconds, total_clicks)
		VALUES (:start_time, :end_time, :duration_seconds, :total_clicks)`,
		LogEntry{
			StartTime:       e.StartTime.UTC(),
			EndTime:         e.EndTime.UTC(),
			DurationSeconds: e.DurationSeconds,
			ClickCount:      e.ClickCount,
		})
	if err != nil {
		return 0, persistErr("add log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("add log", err)
	}
	return id, nil
}

// ListLogs returns every session log, most recent first.
func (s *Store) ListLogs(ctx context.Context) ([]LogEntry, error) {
	out := []LogEntry{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, start_time, end_time, duration_seconds, total_clicks
		FROM logs ORDER BY id DESC`)
	if err != nil {
		return nil, persistErr("list logs", err)
	}
	return out, nil
}

func (s *Store) DeleteLog(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete log", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return persistErr("delete log", err)
	} else if n == 0 {
		return fmt.Errorf("%w: id %d", ErrLogNotFound, id)
	}
	return nil
}

// ClearLogs deletes every session log and returns how many were removed.
func (s *Store) ClearLogs(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM logs`)
	if err != nil {
		return 0, persistErr("clear logs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistErr("clear logs", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
