package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/rowgit/pkg/core"
)

// Serializer is the canonical on-disk encoding of entities.
//
// Encoding must be deterministic: equal entities produce identical bytes,
// and Decode(Encode(e)) equals e field for field.
type Serializer interface {
	Ext() string
	Encode(e core.Entity) ([]byte, error)
	Decode(data []byte) (core.Entity, error)
}

// Formats known to SerializerFor.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// SerializerFor returns the serializer of a format name. Empty means YAML.
func SerializerFor(format string) (Serializer, error) {
	switch strings.ToLower(format) {
	case "", FormatYAML, "yml":
		return YAML{}, nil
	case FormatJSON:
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// referenceGroup is the file representation of the references sharing a name.
type referenceGroup struct {
	Name string
	Kind string
	IDs  []string
}

func groupReferences(refs []core.Reference) ([]referenceGroup, error) {
	var groups []referenceGroup
	for _, r := range core.SortReferences(refs) {
		n := len(groups)
		if n > 0 && groups[n-1].Name == r.Name {
			if groups[n-1].Kind != r.Kind {
				return nil, fmt.Errorf("reference %q mixes kinds %s and %s", r.Name, groups[n-1].Kind, r.Kind)
			}
			groups[n-1].IDs = append(groups[n-1].IDs, r.ID)
			continue
		}
		groups = append(groups, referenceGroup{Name: r.Name, Kind: r.Kind, IDs: []string{r.ID}})
	}
	return groups, nil
}

// formatFloat renders f so that it always reads back as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
