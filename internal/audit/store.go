// Package audit keeps a SQLite-backed trail of impact analyses and validation
// runs so past decisions can be reviewed.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const (
	KindImpact   = "impact"
	KindValidate = "validate"
	KindBuild    = "build"

	DefaultLimit = 20

	// fixed-width so created_at sorts lexically
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

var ErrInvalidEvent = errors.New("invalid audit event")

// Event is one recorded run. Subject is the node id for impact analyses and
// the graph path for validation runs; Outcome is the risk level or status.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Outcome   string    `json:"outcome"`
	Score     int       `json:"score,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database at path if needed and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			subject    TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			score      INTEGER NOT NULL DEFAULT 0,
			details    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_events_subject ON events(subject);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores e, filling in ID and CreatedAt when they are zero, and returns
// the stored event.
func (s *Store) Record(ctx context.Context, e Event) (Event, error) {
	if e.Kind == "" || e.Subject == "" {
		return Event{}, fmt.Errorf("%w: kind and subject are required", ErrInvalidEvent)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, kind, subject, outcome, score, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Subject, e.Outcome, e.Score, e.Details, e.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return Event{}, fmt.Errorf("audit: record %s: %w", e.Kind, err)
	}
	return e, nil
}

// Recent returns up to limit events, newest first. A non-positive limit means
// DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	return s.query(ctx, `SELECT id, kind, subject, outcome, score, details, created_at
		FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`, normalizeLimit(limit))
}

// ForSubject returns up to limit events recorded for subject, newest first.
func (s *Store) ForSubject(ctx context.Context, subject string, limit int) ([]Event, error) {
	return s.query(ctx, `SELECT id, kind, subject, outcome, score, details, created_at
		FROM events WHERE subject = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, subject, normalizeLimit(limit))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e       Event
			created string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Subject, &e.Outcome, &e.Score, &e.Details, &created); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.CreatedAt, err = time.Parse(timeFormat, created)
		if err != nil {
			return nil, fmt.Errorf("audit: event %s: bad timestamp %q: %w", e.ID, created, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
