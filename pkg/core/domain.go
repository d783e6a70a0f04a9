// Package core holds the domain types and ports shared by every rowgit component.
package core

import (
	"fmt"
	"sort"
	"time"
)

// Fields is the set of scalar attributes of an entity.
// Values are normalized to string, int64, float64, bool or nil before they are stored.
type Fields map[string]any

// Keys returns the field names in canonical (sorted) order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Reference points from one entity to another through a named relation
// (a foreign-key column or a taxonomy). ID is always a stable id.
type Reference struct {
	Name string
	Kind string
	ID   string
}

// Entity is one semantic record of a tracked kind, addressed by its stable id.
type Entity struct {
	Kind       string
	ID         string
	Fields     Fields
	References []Reference
}

// SortReferences puts the references in canonical order (by name, then id)
// and drops duplicates.
func SortReferences(refs []Reference) []Reference {
	if len(refs) == 0 {
		return nil
	}
	sorted := make([]Reference, len(refs))
	copy(sorted, refs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := sorted[:0]
	for i, r := range sorted {
		if i > 0 && r == sorted[i-1] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Row is the host-side view of an entity: the database row id plus its
// columns. Reference columns carry volatile ids (int64 or a list of them).
type Row struct {
	ID     int64
	Fields Fields
}

// MutationOp is the kind of change a FileMutation applies to the working tree.
type MutationOp int

const (
	OpWrite MutationOp = iota
	OpDelete
)

func (op MutationOp) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("MutationOp(%d)", int(op))
	}
}

// FileMutation is one pending change of the working tree.
// Render is evaluated when the change is applied, so several saves of the
// same entity within a request all render its final state.
type FileMutation struct {
	Path   string
	Op     MutationOp
	Render func() ([]byte, error)
}

// WriteFile returns a mutation writing fixed content to path.
func WriteFile(path string, data []byte) FileMutation {
	return FileMutation{
		Path:   path,
		Op:     OpWrite,
		Render: func() ([]byte, error) { return data, nil },
	}
}

// DeleteFile returns a mutation removing path.
func DeleteFile(path string) FileMutation {
	return FileMutation{Path: path, Op: OpDelete}
}

// Revision is one commit recorded in the version-control history.
type Revision struct {
	ID      string
	Message string
	When    time.Time
}

// Identity is the author recorded on commits.
type Identity struct {
	Name  string
	Email string
}
