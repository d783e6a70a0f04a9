package identity

import (
	"context"
	"sync"

	"github.com/aretw0/rowgit/pkg/core"
)

type rowKey struct {
	kind string
	id   int64
}

type stableKey struct {
	kind string
	id   string
}

type assignment struct {
	volatileID int64
	retired    bool
}

// MemoryStore is an in-process core.IdentityStore.
// It is used by ephemeral engines and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	byRow    map[rowKey]string
	byStable map[stableKey]*assignment
	issued   map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byRow:    make(map[rowKey]string),
		byStable: make(map[stableKey]*assignment),
		issued:   make(map[string]struct{}),
	}
}

func (s *MemoryStore) Lookup(ctx context.Context, kind string, volatileID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRow[rowKey{kind, volatileID}]
	return id, ok, nil
}

func (s *MemoryStore) LookupVolatile(ctx context.Context, kind, stableID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byStable[stableKey{kind, stableID}]
	if !ok || a.retired {
		return 0, false, nil
	}
	return a.volatileID, true, nil
}

func (s *MemoryStore) Insert(ctx context.Context, kind string, volatileID int64, stableID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byRow[rowKey{kind, volatileID}]; ok {
		return id, nil
	}
	if _, taken := s.issued[stableID]; taken {
		return "", core.ErrStableIDCollision
	}

	s.byRow[rowKey{kind, volatileID}] = stableID
	s.byStable[stableKey{kind, stableID}] = &assignment{volatileID: volatileID}
	s.issued[stableID] = struct{}{}
	return stableID, nil
}

func (s *MemoryStore) RemoveByVolatileID(ctx context.Context, kind string, volatileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rowKey{kind, volatileID}
	id, ok := s.byRow[key]
	if !ok {
		return nil
	}
	delete(s.byRow, key)
	if a, ok := s.byStable[stableKey{kind, id}]; ok {
		a.retired = true
	}
	return nil
}

// Len returns the number of stable ids ever issued, retired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.issued)
}

var _ core.IdentityStore = (*MemoryStore)(nil)
