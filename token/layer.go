// Package token implements the layered design-token resolver.
//
// Tokens are named design values (colors, fonts, spacing) defined across an
// ordered stack of layers (core, fork, org, group, personal, channel). Layers
// are deep-merged with override precedence, flattened to dotted paths, and
// any {path.to.token} references are substituted recursively until every
// value is a terminal scalar.
package token

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Unset is the sentinel value a layer uses to delete a token inherited from
// a lower layer. A nil/absent value inherits; only this sentinel removes.
const Unset = "$unset"

// ExtensionsKey marks a metadata subtree that is carried through resolution
// untouched (descriptions, accessibility hints). Extension values are never
// merged into the token namespace and never substituted.
const ExtensionsKey = "$extensions"

// LayerNames lists the standard layer stack in base-to-override order.
var LayerNames = []string{"core", "fork", "org", "group", "personal", "channel"}

// Layer is one named source of token overrides. Layers are immutable after
// load; precedence is positional (later layers in the stack override earlier
// ones).
type Layer struct {
	// Name identifies the layer in diagnostics (e.g. "core", "org").
	Name string

	// Values is the nested token tree for this layer. Leaves are scalars or
	// reference strings; interior nodes are maps.
	Values map[string]any
}

// LoadLayerFile reads one layer's token tree from a YAML document.
func LoadLayerFile(name, path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, fmt.Errorf("read layer %s: %w", name, err)
	}
	return ParseLayer(name, data)
}

// ParseLayer parses a layer's token tree from YAML bytes.
func ParseLayer(name string, data []byte) (Layer, error) {
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return Layer{}, fmt.Errorf("parse layer %s: %w", name, err)
	}
	return Layer{Name: name, Values: values}, nil
}
