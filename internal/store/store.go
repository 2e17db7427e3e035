// Package store persists built timelines and profiles as JSON snapshots in
// SQLite so they can be served again without rebuilding.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Kind identifies what a snapshot holds.
type Kind string

const (
	KindTimeline Kind = "timeline"
	KindSimple   Kind = "simple"
	KindProfile  Kind = "profile"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTimeline, KindSimple, KindProfile:
		return true
	}
	return false
}

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one stored result.
type Snapshot struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Decode unmarshals the payload into v.
func (s *Snapshot) Decode(v any) error {
	if err := json.Unmarshal(s.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s snapshot: %w", s.Kind, err)
	}
	return nil
}

// Age returns how long ago the snapshot was taken.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Store manages snapshots in a SQLite database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the snapshot database at path. Use ":memory:" for
// a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases consistent and
	// serializes writers on file databases.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000", // Wait up to 10 seconds on lock
		"PRAGMA synchronous = NORMAL", // Balance between safety and performance
		"PRAGMA journal_mode = WAL",   // Write-Ahead Logging for concurrent readers
		"PRAGMA temp_store = MEMORY",  // Use memory for temp tables
		"PRAGMA cache_size = -16000",  // 16MB cache
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL COLLATE NOCASE,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_lookup ON snapshots(username, kind, created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores v, encoded as JSON, as the newest snapshot of kind for
// username.
func (s *Store) Save(ctx context.Context, username string, kind Kind, v any) (*Snapshot, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid snapshot kind %q", kind)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s snapshot: %w", kind, err)
	}

	createdAt := s.now().UTC().Truncate(time.Second)

	query := `
		INSERT INTO snapshots (username, kind, payload, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, username, string(kind), string(payload), createdAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert id: %w", err)
	}

	return &Snapshot{
		ID:        id,
		Username:  username,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: createdAt,
	}, nil
}

// Latest returns the newest snapshot of kind for username, or ErrNotFound.
func (s *Store) Latest(ctx context.Context, username string, kind Kind) (*Snapshot, error) {
	query := `
		SELECT id, username, kind, payload, created_at
		FROM snapshots
		WHERE username = ? AND kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, query, username, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	return snap, nil
}

// History returns up to limit snapshots of kind for username, newest first.
// A non-positive limit returns all of them.
func (s *Store) History(ctx context.Context, username string, kind Kind, limit int) ([]Snapshot, error) {
	query := `
		SELECT id, username, kind, payload, created_at
		FROM snapshots
		WHERE username = ? AND kind = ?
		ORDER BY created_at DESC, id DESC
	`

	args := []any{username, string(kind)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// Cleanup removes snapshots older than maxAge to prevent unbounded growth.
// The newest snapshot of each user and kind is always kept.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()

	query := `
		DELETE FROM snapshots
		WHERE created_at < ?
		AND id NOT IN (
			SELECT MAX(id) FROM snapshots GROUP BY username, kind
		)
	`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var snap Snapshot
	var kind, payload string
	var createdAt int64

	if err := row.Scan(&snap.ID, &snap.Username, &kind, &payload, &createdAt); err != nil {
		return nil, err
	}

	snap.Kind = Kind(kind)
	snap.Payload = json.RawMessage(payload)
	snap.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &snap, nil
}
