package token

import (
	"sort"
	"strings"
)

// Flat is the flattened view of a merged token tree: dotted leaf paths
// mapped to raw (pre-substitution) values, with extension metadata carried
// aside keyed by the owning group path.
type Flat struct {
	Values     map[string]any
	Extensions map[string]any
}

// Paths returns all token paths in sorted order. Sorting keeps diagnostics
// and resolution order deterministic.
func (f *Flat) Paths() []string {
	paths := make([]string, 0, len(f.Values))
	for p := range f.Values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Flatten converts a merged token tree into dotted-path form. Every leaf
// becomes one entry; $extensions subtrees are set aside untouched.
//
// The flattened namespace is validated for prefix collisions: a path may not
// be both a leaf and the parent of other leaves (possible when a layer mixes
// literal dotted keys with nesting, e.g. "a.b: 1" alongside a: {b: 2} or
// a: 1 alongside a: {b: 2} across layers).
func Flatten(tree map[string]any) (*Flat, error) {
	flat := &Flat{
		Values:     make(map[string]any),
		Extensions: make(map[string]any),
	}
	if err := flattenInto(flat, tree, ""); err != nil {
		return nil, err
	}
	if err := validatePaths(flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenInto(flat *Flat, tree map[string]any, prefix string) error {
	for key, val := range tree {
		if key == ExtensionsKey {
			flat.Extensions[prefix] = val
			continue
		}
		path := joinPath(prefix, key)
		if sub, ok := val.(map[string]any); ok {
			if err := flattenInto(flat, sub, path); err != nil {
				return err
			}
			continue
		}
		if _, dup := flat.Values[path]; dup {
			return &PathCollisionError{Path: path, Conflict: path}
		}
		flat.Values[path] = val
	}
	return nil
}

func validatePaths(flat *Flat) error {
	paths := flat.Paths()
	for _, p := range paths {
		// Descendants of p sort at or after p+"." but not necessarily
		// adjacent to p: other runes ('-', '_') order before '.'.
		parent := p + "."
		i := sort.SearchStrings(paths, parent)
		if i < len(paths) && strings.HasPrefix(paths[i], parent) {
			return &PathCollisionError{Path: p, Conflict: paths[i]}
		}
	}
	return nil
}
