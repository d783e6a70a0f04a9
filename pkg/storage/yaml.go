package storage

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/rowgit/pkg/core"
)

// YAML encodes entities as YAML documents:
//
//	id: <stable id>
//	kind: posts
//	fields:
//	  post_title: Hello
//	references:
//	  category:
//	    kind: terms
//	    ids:
//	      - <stable id>
//
// Scalars carry explicit tags, so "42" stays a string and 1.0 stays a float.
type YAML struct{}

func (YAML) Ext() string { return ".yml" }

func (YAML) Encode(e core.Entity) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	addPair(root, "id", strNode(e.ID))
	addPair(root, "kind", strNode(e.Kind))

	fields := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range e.Fields.Keys() {
		v, err := scalarNode(e.Fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		addPair(fields, k, v)
	}
	addPair(root, "fields", flowIfEmpty(fields))

	groups, err := groupReferences(e.References)
	if err != nil {
		return nil, err
	}
	refs := &yaml.Node{Kind: yaml.MappingNode}
	for _, g := range groups {
		ids := &yaml.Node{Kind: yaml.SequenceNode}
		for _, id := range g.IDs {
			ids.Content = append(ids.Content, strNode(id))
		}
		group := &yaml.Node{Kind: yaml.MappingNode}
		addPair(group, "kind", strNode(g.Kind))
		addPair(group, "ids", ids)
		addPair(refs, g.Name, group)
	}
	addPair(root, "references", flowIfEmpty(refs))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAML) Decode(data []byte) (core.Entity, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.Entity{}, fmt.Errorf("invalid yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return core.Entity{}, fmt.Errorf("invalid yaml: entity must be a mapping")
	}

	e := core.Entity{Fields: core.Fields{}}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "id":
			e.ID = val.Value
		case "kind":
			e.Kind = val.Value
		case "fields":
			for j := 0; j+1 < len(val.Content); j += 2 {
				v, err := scalarValue(val.Content[j+1])
				if err != nil {
					return core.Entity{}, fmt.Errorf("field %s: %w", val.Content[j].Value, err)
				}
				e.Fields[val.Content[j].Value] = v
			}
		case "references":
			for j := 0; j+1 < len(val.Content); j += 2 {
				var g struct {
					Kind string   `yaml:"kind"`
					IDs  []string `yaml:"ids"`
				}
				if err := val.Content[j+1].Decode(&g); err != nil {
					return core.Entity{}, fmt.Errorf("reference %s: %w", val.Content[j].Value, err)
				}
				for _, id := range g.IDs {
					e.References = append(e.References, core.Reference{Name: val.Content[j].Value, Kind: g.Kind, ID: id})
				}
			}
		}
	}
	e.References = core.SortReferences(e.References)
	return e, nil
}

func addPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, strNode(key), value)
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func flowIfEmpty(n *yaml.Node) *yaml.Node {
	if len(n.Content) == 0 {
		n.Style = yaml.FlowStyle
	}
	return n
}

func scalarNode(v any) (*yaml.Node, error) {
	switch val := core.NormalizeValue(v).(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return strNode(val), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}, nil
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(val, 10)}, nil
	case float64:
		var s string
		switch {
		case math.IsNaN(val):
			s = ".nan"
		case math.IsInf(val, 1):
			s = ".inf"
		case math.IsInf(val, -1):
			s = "-.inf"
		default:
			s = formatFloat(val)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", val)
	}
}

func scalarValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return scalarValue(n.Alias)
	}
	if n.Kind != yaml.ScalarNode {
		// Hand-edited nested values are kept as their text.
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return core.NormalizeValue(v), nil
	}

	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Out of int64 range.
			return n.Value, nil
		}
		return i, nil
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!binary":
		var s string
		err := n.Decode(&s)
		return s, err
	default:
		return n.Value, nil
	}
}
