package token

// Merge deep-merges an ordered layer stack (base first, most specific last)
// into a single nested token tree.
//
// Later layers override earlier ones leaf-by-leaf: a scalar replaces the
// scalar at the same path, groups merge recursively rather than replacing
// wholesale. A nil value inherits from the lower layer; the Unset sentinel
// deletes the inherited token. A layer replacing a leaf with a group (or the
// reverse) is a TypeConflictError.
func Merge(layers []Layer) (map[string]any, error) {
	merged := make(map[string]any)
	for _, layer := range layers {
		if err := mergeInto(merged, layer.Values, layer.Name, ""); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func mergeInto(dst, src map[string]any, layer, prefix string) error {
	for key, val := range src {
		path := joinPath(prefix, key)

		// Extension metadata is replaced wholesale, never merged or typed.
		if key == ExtensionsKey {
			dst[key] = val
			continue
		}

		switch v := val.(type) {
		case nil:
			// Absent/null inherits from the lower layer.
		case string:
			if v == Unset {
				delete(dst, key)
				continue
			}
			if err := checkLeafOverride(dst, key, layer, path); err != nil {
				return err
			}
			dst[key] = v
		case map[string]any:
			existing, ok := dst[key]
			if !ok {
				fresh := make(map[string]any)
				dst[key] = fresh
				if err := mergeInto(fresh, v, layer, path); err != nil {
					return err
				}
				continue
			}
			sub, ok := existing.(map[string]any)
			if !ok {
				return &TypeConflictError{Layer: layer, Path: path, Detail: "group overrides a value"}
			}
			if err := mergeInto(sub, v, layer, path); err != nil {
				return err
			}
		default:
			// Numbers, booleans, and other scalars.
			if err := checkLeafOverride(dst, key, layer, path); err != nil {
				return err
			}
			dst[key] = val
		}
	}
	return nil
}

func checkLeafOverride(dst map[string]any, key, layer, path string) error {
	if _, isGroup := dst[key].(map[string]any); isGroup {
		return &TypeConflictError{Layer: layer, Path: path, Detail: "value overrides a group"}
	}
	return nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
