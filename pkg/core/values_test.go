package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "x", "x"},
		{"bool", true, true},
		{"int", 7, int64(7)},
		{"int32", int32(-3), int64(-3)},
		{"uint8", uint8(255), int64(255)},
		{"uint64 in range", uint64(12), int64(12)},
		{"uint64 overflow", uint64(math.MaxUint64), "18446744073709551615"},
		{"float32", float32(0.5), float64(0.5)},
		{"bytes", []byte("raw"), "raw"},
		{"stringer", 90 * time.Second, "1m30s"},
		{"other", struct{ A int }{1}, "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.in))
		})
	}
}

func TestVolatileIDs(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []int64
		wantErr bool
	}{
		{name: "nil", in: nil},
		{name: "zero means no reference", in: 0},
		{name: "int", in: 5, want: []int64{5}},
		{name: "numeric string", in: " 12 ", want: []int64{12}},
		{name: "integral float", in: 3.0, want: []int64{3}},
		{name: "int list", in: []int{1, 2}, want: []int64{1, 2}},
		{name: "mixed list", in: []any{1, "2", int64(3)}, want: []int64{1, 2, 3}},
		{name: "zeros dropped from int64 list", in: []int64{0, 4, 0}, want: []int64{4}},
		{name: "zeros dropped from int list", in: []int{0, 2}, want: []int64{2}},
		{name: "string list", in: []string{"7", " 8", "0"}, want: []int64{7, 8}},
		{name: "bad string list", in: []string{"7", "x"}, wantErr: true},
		{name: "fractional float", in: 1.5, wantErr: true},
		{name: "word", in: "abc", wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VolatileIDs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortReferences(t *testing.T) {
	refs := []Reference{
		{Name: "post_tag", Kind: "terms", ID: "b"},
		{Name: "category", Kind: "terms", ID: "z"},
		{Name: "post_tag", Kind: "terms", ID: "a"},
		{Name: "post_tag", Kind: "terms", ID: "b"},
	}
	got := SortReferences(refs)
	assert.Equal(t, []Reference{
		{Name: "category", Kind: "terms", ID: "z"},
		{Name: "post_tag", Kind: "terms", ID: "a"},
		{Name: "post_tag", Kind: "terms", ID: "b"},
	}, got)
	assert.Equal(t, "b", refs[0].ID, "input is not reordered")
	assert.Nil(t, SortReferences(nil))
}

func TestFields(t *testing.T) {
	f := Fields{"b": 1, "a": 2}
	assert.Equal(t, []string{"a", "b"}, f.Keys())

	c := f.Clone()
	c["a"] = 3
	assert.Equal(t, 2, f["a"])
}
