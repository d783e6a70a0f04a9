package core

import (
	"context"
	"time"
)

// IdentityStore is the durable table behind the identity map.
// Implementations are expected to be transactional at the row level.
type IdentityStore interface {
	// Lookup returns the stable id currently assigned to (kind, volatileID).
	Lookup(ctx context.Context, kind string, volatileID int64) (string, bool, error)

	// LookupVolatile returns the live volatile id of a stable id.
	// Retired mappings are reported as not found.
	LookupVolatile(ctx context.Context, kind, stableID string) (int64, bool, error)

	// Insert assigns stableID to (kind, volatileID) unless another id is already
	// assigned, and returns the id that won. It returns ErrStableIDCollision when
	// stableID is already registered for any row.
	Insert(ctx context.Context, kind string, volatileID int64, stableID string) (string, error)

	// RemoveByVolatileID retires the mapping of a deleted row. The stable id
	// stays registered so it is never handed out again.
	RemoveByVolatileID(ctx context.Context, kind string, volatileID int64) error
}

// FileSystem is the adapter used to mutate the working tree.
// Paths are slash separated and relative to the working tree root.
type FileSystem interface {
	WriteFile(path string, data []byte) error
	// ReadFile returns an error matching os.ErrNotExist for missing files.
	ReadFile(path string) ([]byte, error)
	DeleteFile(path string) error
	// RemoveDirectory removes path if it is an empty directory.
	RemoveDirectory(path string) error
	// ReadDir returns the names of the regular files directly inside dir.
	ReadDir(dir string) ([]string, error)
}

// Versioner is the version-control backend operating on the working tree.
type Versioner interface {
	// Lock acquires the commit-time lock, waiting at most timeout.
	// It fails with ErrLockContention when the wait expires.
	Lock(ctx context.Context, timeout time.Duration) (unlock func(), err error)

	// Stage records the current working tree state of paths in the index.
	// Paths that no longer exist are staged as removals.
	Stage(ctx context.Context, paths ...string) error

	// Commit records the staged state with message and returns the commit id.
	Commit(ctx context.Context, message string) (string, error)

	// History returns the commits reachable from HEAD, newest first.
	History(ctx context.Context) ([]Revision, error)
}
