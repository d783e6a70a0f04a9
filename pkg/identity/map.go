// Package identity maps volatile database row ids to stable, install-portable ids.
//
// Row ids are scoped by kind (table name) and are not portable across installs,
// merges or rebases. Files in the working tree therefore only ever reference
// stable ids, which the Map assigns lazily on first reference and never reuses.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/rowgit/pkg/core"
)

// maxAssignAttempts bounds retries after a stable id collision.
const maxAssignAttempts = 3

// Map is the bidirectional (kind, volatile id) <-> stable id lookup service.
// It is safe for concurrent use when its store is.
type Map struct {
	store  core.IdentityStore
	newID  func() (string, error)
	logger *slog.Logger
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger used for assignment events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Map) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithGenerator replaces the stable id generator (tests use it to force collisions).
func WithGenerator(gen func() (string, error)) Option {
	return func(m *Map) {
		m.newID = gen
	}
}

// NewMap creates a Map over the given backing store.
func NewMap(store core.IdentityStore, opts ...Option) *Map {
	m := &Map{
		store:  store,
		newID:  NewStableID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the stable id of a row, assigning a fresh one on first lookup.
// Repeated calls for the same row return the same id.
func (m *Map) Resolve(ctx context.Context, kind string, volatileID int64) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("resolve: empty kind")
	}

	if id, ok, err := m.store.Lookup(ctx, kind, volatileID); err != nil {
		return "", fmt.Errorf("resolve %s/%d: %w", kind, volatileID, err)
	} else if ok {
		return id, nil
	}

	for attempt := 1; ; attempt++ {
		candidate, err := m.newID()
		if err != nil {
			return "", fmt.Errorf("resolve %s/%d: generate id: %w", kind, volatileID, err)
		}

		id, err := m.store.Insert(ctx, kind, volatileID, candidate)
		if errors.Is(err, core.ErrStableIDCollision) && attempt < maxAssignAttempts {
			m.logger.Warn("stable id collision, regenerating", "kind", kind, "id", candidate)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("resolve %s/%d: %w", kind, volatileID, err)
		}

		if id == candidate {
			m.logger.Debug("assigned stable id", "kind", kind, "volatile_id", volatileID, "id", id)
		}
		return id, nil
	}
}

// Lookup returns the stable id of a row without assigning one.
func (m *Map) Lookup(ctx context.Context, kind string, volatileID int64) (string, bool, error) {
	id, ok, err := m.store.Lookup(ctx, kind, volatileID)
	if err != nil {
		return "", false, fmt.Errorf("lookup %s/%d: %w", kind, volatileID, err)
	}
	return id, ok, nil
}

// ReverseResolve returns the live row id of a stable id.
// Unknown and retired ids fail with core.ErrIdentityMiss.
func (m *Map) ReverseResolve(ctx context.Context, kind, stableID string) (int64, error) {
	id, ok, err := m.store.LookupVolatile(ctx, kind, stableID)
	if err != nil {
		return 0, fmt.Errorf("reverse resolve %s/%s: %w", kind, stableID, err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", core.ErrIdentityMiss, kind, stableID)
	}
	return id, nil
}

// Forget retires the mapping of a deleted row. The stable id stays valid for
// historical file references but is no longer reachable from the row id.
func (m *Map) Forget(ctx context.Context, kind string, volatileID int64) error {
	if err := m.store.RemoveByVolatileID(ctx, kind, volatileID); err != nil {
		return fmt.Errorf("forget %s/%d: %w", kind, volatileID, err)
	}
	m.logger.Debug("retired volatile id", "kind", kind, "volatile_id", volatileID)
	return nil
}
