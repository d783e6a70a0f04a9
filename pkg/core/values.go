package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeValue converts a host-provided column value to one of the scalar
// types stored in Fields: string, int64, float64, bool or nil.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case bool:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return uintValue(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func uintValue(u uint64) any {
	if u > math.MaxInt64 {
		return fmt.Sprint(u)
	}
	return int64(u)
}

// NormalizeFields applies NormalizeValue to every value.
func NormalizeFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = NormalizeValue(v)
	}
	return out
}

// VolatileIDs extracts the row ids carried by a reference column.
// It accepts a single integer, a numeric string, or a list of them.
func VolatileIDs(v any) ([]int64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []int64:
		return volatileList(val)
	case []int:
		return volatileList(val)
	case []string:
		return volatileList(val)
	case []any:
		return volatileList(val)
	}

	switch n := NormalizeValue(v).(type) {
	case int64:
		if n == 0 {
			// 0 is the host's "no reference" marker (e.g. post_parent of a top-level post).
			return nil, nil
		}
		return []int64{n}, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("reference value %v is not an integer", n)
		}
		return VolatileIDs(int64(n))
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reference value %q is not a row id", n)
		}
		return VolatileIDs(id)
	default:
		return nil, fmt.Errorf("unsupported reference value %T", v)
	}
}

// volatileList flattens a list of reference values, dropping "no reference" entries.
func volatileList[T any](items []T) ([]int64, error) {
	var out []int64
	for _, item := range items {
		ids, err := VolatileIDs(item)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}
