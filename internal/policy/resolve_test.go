package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, cfg *Config) *Table {
	t.Helper()
	table, err := Normalize(cfg)
	require.NoError(t, err)
	return table
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		group    string
		fullName string
		want     []Method
	}{
		{
			name:     "no policy at all allows everything",
			cfg:      nil,
			group:    "example.com",
			fullName: "widgets.example.com",
			want:     []Method{MethodDocs, MethodList, MethodGet, MethodCreate, MethodUpdate},
		},
		{
			name: "resource entry with empty methods allows everything",
			cfg: &Config{
				AllowedCRDs: []Entry{{Name: "widgets.example.com", Methods: []string{}}},
			},
			group:    "example.com",
			fullName: "widgets.example.com",
			want:     []Method{MethodDocs, MethodList, MethodGet, MethodCreate, MethodUpdate},
		},
		{
			name: "resource entry with empty methods wins over restrictive group entry",
			cfg: &Config{
				AllowedGroups: []Entry{{Name: "example.com", Methods: []string{"get"}}},
				AllowedCRDs:   []Entry{{Name: "widgets.example.com", Methods: []string{}}},
			},
			group:    "example.com",
			fullName: "widgets.example.com",
			want:     []Method{MethodDocs, MethodList, MethodGet, MethodCreate, MethodUpdate},
		},
		{
			name: "resource entry wins over group entry",
			cfg: &Config{
				AllowedGroups: []Entry{{Name: "example.com", Methods: []string{"list", "get", "create"}}},
				AllowedCRDs:   []Entry{{Name: "widgets.example.com", Methods: []string{"get"}}},
			},
			group:    "example.com",
			fullName: "widgets.example.com",
			want:     []Method{MethodGet},
		},
		{
			name: "group entry applies when no resource entry exists",
			cfg: &Config{
				AllowedGroups: []Entry{{Name: "example.com", Methods: []string{"list", "get", "create"}}},
			},
			group:    "example.com",
			fullName: "widgets.example.com",
			want:     []Method{MethodList, MethodGet, MethodCreate},
		},
		{
			name: "group entry with empty methods allows everything in the group",
			cfg: &Config{
				AllowedGroups: []Entry{{Name: "example.com", Methods: []string{}}},
			},
			group:    "example.com",
			fullName: "widgets.example.com",
			want:     []Method{MethodDocs, MethodList, MethodGet, MethodCreate, MethodUpdate},
		},
		{
			name: "unmatched kind is denied when resource entries exist elsewhere",
			cfg: &Config{
				AllowedCRDs: []Entry{{Name: "widgets.example.com", Methods: []string{}}},
			},
			group:    "other.io",
			fullName: "gadgets.other.io",
			want:     nil,
		},
		{
			name: "same group different plural is denied when not listed",
			cfg: &Config{
				AllowedCRDs: []Entry{{Name: "foo.example.com", Methods: []string{"get"}}},
			},
			group:    "example.com",
			fullName: "bar.example.com",
			want:     nil,
		},
		{
			name: "unmatched kind is denied when group entries exist elsewhere",
			cfg: &Config{
				AllowedGroups: []Entry{{Name: "example.com", Methods: []string{"get"}}},
			},
			group:    "other.io",
			fullName: "gadgets.other.io",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustNormalize(t, tt.cfg)
			got := table.Resolve(tt.group, tt.fullName)
			if len(tt.want) == 0 {
				assert.Empty(t, got.Methods())
			} else {
				assert.Equal(t, tt.want, got.Methods())
			}
			assert.Equal(t, len(tt.want) == 0, got.IsEmpty())
		})
	}
}

// Resolution must not depend on the order kinds are looked up.
func TestResolve_Deterministic(t *testing.T) {
	table := mustNormalize(t, &Config{
		AllowedGroups: []Entry{{Name: "example.com", Methods: []string{"list"}}},
		AllowedCRDs:   []Entry{{Name: "widgets.example.com", Methods: []string{"get"}}},
	})

	kinds := []struct{ group, fullName string }{
		{"example.com", "widgets.example.com"},
		{"example.com", "gadgets.example.com"},
		{"other.io", "things.other.io"},
	}

	first := make([]MethodSet, len(kinds))
	for i, k := range kinds {
		first[i] = table.Resolve(k.group, k.fullName)
	}
	// Reverse order, same results.
	for i := len(kinds) - 1; i >= 0; i-- {
		got := table.Resolve(kinds[i].group, kinds[i].fullName)
		assert.Equal(t, first[i].Methods(), got.Methods())
	}
}

func TestMethodSet(t *testing.T) {
	s := NewMethodSet(MethodGet, MethodDocs)
	assert.True(t, s.Has(MethodGet))
	assert.True(t, s.Has(MethodDocs))
	assert.False(t, s.Has(MethodCreate))
	assert.Equal(t, 2, s.Len())
	// Canonical order regardless of construction order.
	assert.Equal(t, []Method{MethodDocs, MethodGet}, s.Methods())

	assert.True(t, NewMethodSet().IsEmpty())
	assert.Equal(t, 5, AllowAll().Len())
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMethod("patch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown method "patch"`)
}
