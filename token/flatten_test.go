package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_DottedPaths(t *testing.T) {
	flat, err := Flatten(map[string]any{
		"colors": map[string]any{
			"primary": map[string]any{"500": "#0066CC"},
			"text":    "#000000",
		},
		"spacing": map[string]any{"base": 4},
	})
	require.NoError(t, err)

	assert.Equal(t, "#0066CC", flat.Values["colors.primary.500"])
	assert.Equal(t, "#000000", flat.Values["colors.text"])
	assert.Equal(t, 4, flat.Values["spacing.base"])
	assert.Equal(t, []string{"colors.primary.500", "colors.text", "spacing.base"}, flat.Paths())
}

func TestFlatten_ExtensionsSetAside(t *testing.T) {
	flat, err := Flatten(map[string]any{
		"colors": map[string]any{
			"primary":     "#111",
			ExtensionsKey: map[string]any{"description": "brand primary", "wcag": "AA"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "#111", flat.Values["colors.primary"])
	assert.NotContains(t, flat.Values, "colors.$extensions.description")

	ext := flat.Extensions["colors"].(map[string]any)
	assert.Equal(t, "brand primary", ext["description"])
}

func TestFlatten_PrefixCollision(t *testing.T) {
	_, err := Flatten(map[string]any{
		"a":   "leaf",
		"a.b": "also leaf", // literal dotted key colliding with "a"
	})
	require.Error(t, err)

	var collision *PathCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "a", collision.Path)
	assert.Equal(t, "a.b", collision.Conflict)

	// A key sorting between the parent and its children ("-" orders before
	// "." in sorted path order) must not mask the collision.
	_, err = Flatten(map[string]any{
		"a":   "leaf",
		"a-x": "unrelated leaf",
		"a.b": "also leaf",
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "a", collision.Path)
	assert.Equal(t, "a.b", collision.Conflict)
}

func TestFlatten_DuplicatePathCollision(t *testing.T) {
	_, err := Flatten(map[string]any{
		"a.b": "literal form",
		"a":   map[string]any{"b": "nested form"},
	})
	require.Error(t, err)

	var collision *PathCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, KindPathCollision, collision.Kind())
}
