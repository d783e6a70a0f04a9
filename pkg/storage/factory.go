package storage

import (
	"fmt"
	"sort"

	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/identity"
)

// Factory hands out the Storage of each tracked kind for one request.
// The registry is fixed at construction.
type Factory struct {
	storages map[string]*Storage
	kinds    []string
}

// NewFactory builds one Storage per schema. Duplicate kinds are rejected.
func NewFactory(schemas []Schema, ids *identity.Map, fs core.FileSystem, registrar Registrar, opts ...Option) (*Factory, error) {
	f := &Factory{storages: make(map[string]*Storage, len(schemas))}
	for _, schema := range schemas {
		if schema.Kind == "" {
			return nil, fmt.Errorf("schema without kind")
		}
		if _, dup := f.storages[schema.Kind]; dup {
			return nil, fmt.Errorf("duplicate schema for kind %q", schema.Kind)
		}
		f.storages[schema.Kind] = New(schema, ids, fs, registrar, opts...)
		f.kinds = append(f.kinds, schema.Kind)
	}
	sort.Strings(f.kinds)
	return f, nil
}

// GetStorage returns the storage of kind, or core.ErrUnknownKind.
func (f *Factory) GetStorage(kind string) (*Storage, error) {
	s, ok := f.storages[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds lists the registered kinds in sorted order.
func (f *Factory) Kinds() []string {
	out := make([]string, len(f.kinds))
	copy(out, f.kinds)
	return out
}
