// Package sqlite provides a durable core.IdentityStore backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/aretw0/rowgit/pkg/core"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps the identity mapping in a single SQLite table.
// Uses WAL mode so readers in other requests are not blocked by an assignment.
type Store struct {
	db *sql.DB
}

// Open creates or opens the identity database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// This function is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identity database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to identity database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply identity schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Lookup(ctx context.Context, kind string, volatileID int64) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT stable_id FROM vp_id WHERE kind = ? AND volatile_id = ?`,
		kind, volatileID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup identity: %w", err)
	}
	return id, true, nil
}

func (s *Store) LookupVolatile(ctx context.Context, kind, stableID string) (int64, bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT volatile_id FROM vp_id WHERE kind = ? AND stable_id = ?`,
		kind, stableID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reverse lookup identity: %w", err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}

// Insert uses ON CONFLICT DO NOTHING on the row index so that concurrent first
// lookups of the same row converge on whichever id was stored first.
func (s *Store) Insert(ctx context.Context, kind string, volatileID int64, stableID string) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vp_id (stable_id, kind, volatile_id)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, volatile_id) DO NOTHING
	`, stableID, kind, volatileID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return "", core.ErrStableIDCollision
		}
		return "", fmt.Errorf("insert identity: %w", err)
	}

	id, ok, err := s.Lookup(ctx, kind, volatileID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("insert identity: row %s/%d vanished after insert", kind, volatileID)
	}
	return id, nil
}

func (s *Store) RemoveByVolatileID(ctx context.Context, kind string, volatileID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE vp_id
		SET volatile_id = NULL, retired_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE kind = ? AND volatile_id = ?
	`, kind, volatileID)
	if err != nil {
		return fmt.Errorf("retire identity: %w", err)
	}
	return nil
}

// Count returns the number of stable ids ever issued, retired ones included.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vp_id`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}

var _ core.IdentityStore = (*Store)(nil)
