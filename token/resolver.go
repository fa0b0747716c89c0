package token

import (
	"fmt"
)

// Resolve substitutes every {path} reference in the flattened token map and
// returns the fully-resolved map. Resolution is all-or-nothing: any cycle,
// missing reference, or depth overrun aborts with a ResolutionError and no
// partial map is returned.
//
// A value that is exactly one reference ("{spacing.base}") keeps the
// referenced scalar's type; references embedded in longer strings
// ("rgb({r}, {g}, {b})") stringify.
func Resolve(flat *Flat) (map[string]any, error) {
	r := &resolver{
		flat:     flat.Values,
		out:      make(map[string]any, len(flat.Values)),
		state:    make(map[string]visitState, len(flat.Values)),
		maxDepth: len(flat.Values) + 1,
	}
	for _, path := range flat.Paths() {
		if _, err := r.resolve(path, 0); err != nil {
			return nil, err
		}
	}
	return r.out, nil
}

// ResolveLayers is the full resolver pipeline: merge, flatten, resolve.
func ResolveLayers(layers []Layer) (map[string]any, error) {
	merged, err := Merge(layers)
	if err != nil {
		return nil, err
	}
	flat, err := Flatten(merged)
	if err != nil {
		return nil, err
	}
	return Resolve(flat)
}

type visitState int

const (
	stateUnvisited visitState = iota
	stateResolving
	stateResolved
)

type resolver struct {
	flat     map[string]any
	out      map[string]any
	state    map[string]visitState
	stack    []string
	maxDepth int
}

func (r *resolver) resolve(path string, depth int) (any, error) {
	if depth > r.maxDepth {
		return nil, &DepthExceededError{Path: path, Depth: r.maxDepth}
	}

	switch r.state[path] {
	case stateResolved:
		return r.out[path], nil
	case stateResolving:
		return nil, &CircularReferenceError{Chain: r.cycleChain(path)}
	}

	raw, ok := r.flat[path]
	if !ok {
		referrer := path
		if n := len(r.stack); n > 0 {
			referrer = r.stack[n-1]
		}
		return nil, &UnresolvedReferenceError{Missing: path, ReferencedBy: referrer}
	}

	r.state[path] = stateResolving
	r.stack = append(r.stack, path)
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
	}()

	value, err := r.resolveValue(raw, depth)
	if err != nil {
		return nil, err
	}

	r.state[path] = stateResolved
	r.out[path] = value
	return value, nil
}

func (r *resolver) resolveValue(raw any, depth int) (any, error) {
	str, ok := raw.(string)
	if !ok {
		return raw, nil
	}

	segs := ParseValue(str)

	// A bare single reference passes the target's value through typed.
	if len(segs) == 1 && segs[0].Ref != "" {
		return r.resolve(segs[0].Ref, depth+1)
	}

	var out []byte
	for _, seg := range segs {
		if seg.Ref == "" {
			out = append(out, seg.Literal...)
			continue
		}
		val, err := r.resolve(seg.Ref, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, stringify(val)...)
	}
	return string(out), nil
}

// cycleChain reconstructs the full cycle ending at path, first and last
// elements identical, for error reporting.
func (r *resolver) cycleChain(path string) []string {
	for i, p := range r.stack {
		if p == path {
			chain := make([]string, 0, len(r.stack)-i+1)
			chain = append(chain, r.stack[i:]...)
			return append(chain, path)
		}
	}
	return []string{path, path}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
