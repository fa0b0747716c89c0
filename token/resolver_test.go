package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveMap(t *testing.T, values map[string]any) (map[string]any, error) {
	t.Helper()
	flat, err := Flatten(values)
	require.NoError(t, err)
	return Resolve(flat)
}

func TestResolve_SimpleReference(t *testing.T) {
	resolved, err := resolveMap(t, map[string]any{
		"a": "{b}",
		"b": "red",
	})
	require.NoError(t, err)
	assert.Equal(t, "red", resolved["a"])
	assert.Equal(t, "red", resolved["b"])
}

func TestResolve_ChainedReferences(t *testing.T) {
	resolved, err := resolveMap(t, map[string]any{
		"colors": map[string]any{
			"base":    "#0066CC",
			"primary": "{colors.base}",
			"accent":  "{colors.primary}",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "#0066CC", resolved["colors.accent"])
}

func TestResolve_CompoundValue(t *testing.T) {
	resolved, err := resolveMap(t, map[string]any{
		"colors": map[string]any{
			"r": 0, "g": 102, "b": 204,
			"primary": "rgb({colors.r}, {colors.g}, {colors.b})",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "rgb(0, 102, 204)", resolved["colors.primary"])
}

func TestResolve_BareReferenceKeepsScalarType(t *testing.T) {
	resolved, err := resolveMap(t, map[string]any{
		"spacing": map[string]any{
			"base":  4,
			"alias": "{spacing.base}",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resolved["spacing.alias"], "a bare reference preserves the target's type")
}

func TestResolve_NoRemainingPlaceholders(t *testing.T) {
	resolved, err := resolveMap(t, map[string]any{
		"a": "{b}",
		"b": "{c} and {d}",
		"c": "one",
		"d": "two",
	})
	require.NoError(t, err)

	for path, val := range resolved {
		if s, ok := val.(string); ok {
			assert.False(t, HasReferences(s), "path %s still contains a reference: %q", path, s)
		}
	}
}

func TestResolve_CycleDetection(t *testing.T) {
	_, err := resolveMap(t, map[string]any{
		"a": "{b}",
		"b": "{a}",
	})
	require.Error(t, err)

	var cycle *CircularReferenceError
	require.ErrorAs(t, err, &cycle)
	assert.Contains(t, cycle.Chain, "a")
	assert.Contains(t, cycle.Chain, "b")
	assert.Equal(t, cycle.Chain[0], cycle.Chain[len(cycle.Chain)-1], "chain closes on itself")
}

func TestResolve_SelfReference(t *testing.T) {
	_, err := resolveMap(t, map[string]any{"a": "{a}"})
	require.Error(t, err)

	var cycle *CircularReferenceError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "a"}, cycle.Chain)
}

func TestResolve_MissingReference(t *testing.T) {
	_, err := resolveMap(t, map[string]any{
		"a": "{nonexistent.path}",
	})
	require.Error(t, err)

	var missing *UnresolvedReferenceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nonexistent.path", missing.Missing)
	assert.Equal(t, "a", missing.ReferencedBy)
}

func TestResolveLayers_EndToEnd(t *testing.T) {
	layers := []Layer{
		{Name: "core", Values: map[string]any{
			"colors": map[string]any{"primary": "#0066CC"},
		}},
		{Name: "org", Values: map[string]any{
			"colors": map[string]any{"primary": "#FF0000"},
		}},
	}

	resolved, err := ResolveLayers(layers)
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", resolved["colors.primary"])
}

func TestResolveLayers_AbortsBeforePartialOutput(t *testing.T) {
	layers := []Layer{
		{Name: "core", Values: map[string]any{
			"good": "fine",
			"bad":  "{missing}",
		}},
	}

	resolved, err := ResolveLayers(layers)
	require.Error(t, err)
	assert.Nil(t, resolved, "no partial map on failure")
}

func TestParseLayer_YAML(t *testing.T) {
	layer, err := ParseLayer("core", []byte(`
colors:
  primary: "#0066CC"
  accent: "{colors.primary}"
spacing:
  base: 4
`))
	require.NoError(t, err)
	assert.Equal(t, "core", layer.Name)

	resolved, err := ResolveLayers([]Layer{layer})
	require.NoError(t, err)
	assert.Equal(t, "#0066CC", resolved["colors.accent"])
	assert.Equal(t, 4, resolved["spacing.base"])
}
