package core

import "errors"

// Common errors.
var (
	// ErrNotFound is returned when an entity has no file in the working tree.
	ErrNotFound = errors.New("entity not found")

	// ErrIdentityMiss is returned when a stable id cannot be mapped back to a row.
	// It is expected in steady state (a relation to an entity not synchronized yet)
	// and callers skip the reference instead of aborting.
	ErrIdentityMiss = errors.New("identity not resolvable")

	// ErrUnknownKind is a configuration error: the host asked to version a kind
	// the engine has no schema for.
	ErrUnknownKind = errors.New("unknown entity kind")

	// ErrLockContention is returned when the commit lock cannot be acquired
	// within the configured wait.
	ErrLockContention = errors.New("commit lock contention")

	// ErrFileSystem wraps failures of the file-system adapter during a commit.
	ErrFileSystem = errors.New("file system failure")

	// ErrCommitFailed wraps failures reported by the version-control backend.
	ErrCommitFailed = errors.New("version control commit failed")

	// ErrStableIDCollision is returned by an identity store when a freshly
	// generated stable id is already registered.
	ErrStableIDCollision = errors.New("stable id already registered")

	ErrReadOnly = errors.New("engine is in read-only mode")
)
