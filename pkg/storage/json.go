package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/rowgit/pkg/core"
)

// JSON encodes entities as indented JSON objects with the same layout as YAML.
// Floats always carry a fraction or exponent so they decode as floats.
type JSON struct{}

type jsonEntity struct {
	ID         string               `json:"id"`
	Kind       string               `json:"kind"`
	Fields     map[string]any       `json:"fields"`
	References map[string]jsonGroup `json:"references"`
}

type jsonGroup struct {
	Kind string   `json:"kind"`
	IDs  []string `json:"ids"`
}

func (JSON) Ext() string { return ".json" }

func (JSON) Encode(e core.Entity) ([]byte, error) {
	doc := jsonEntity{
		ID:         e.ID,
		Kind:       e.Kind,
		Fields:     make(map[string]any, len(e.Fields)),
		References: map[string]jsonGroup{},
	}
	for k, v := range e.Fields {
		switch val := core.NormalizeValue(v).(type) {
		case float64:
			if !finite(val) {
				return nil, fmt.Errorf("field %s: %v can not be encoded as json", k, val)
			}
			doc.Fields[k] = json.Number(formatFloat(val))
		default:
			doc.Fields[k] = val
		}
	}

	groups, err := groupReferences(e.References)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		doc.References[g.Name] = jsonGroup{Kind: g.Kind, IDs: g.IDs}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func (JSON) Decode(data []byte) (core.Entity, error) {
	var doc jsonEntity
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return core.Entity{}, fmt.Errorf("invalid json: %w", err)
	}

	e := core.Entity{ID: doc.ID, Kind: doc.Kind, Fields: make(core.Fields, len(doc.Fields))}
	for k, v := range doc.Fields {
		val, err := jsonValue(v)
		if err != nil {
			return core.Entity{}, fmt.Errorf("field %s: %w", k, err)
		}
		e.Fields[k] = val
	}
	for name, g := range doc.References {
		for _, id := range g.IDs {
			e.References = append(e.References, core.Reference{Name: name, Kind: g.Kind, ID: id})
		}
	}
	e.References = core.SortReferences(e.References)
	return e, nil
}

func jsonValue(v any) (any, error) {
	n, ok := v.(json.Number)
	if !ok {
		return core.NormalizeValue(v), nil
	}
	if strings.ContainsAny(n.String(), ".eE") {
		return n.Float64()
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	// Out of int64 range.
	return n.String(), nil
}
