package token

import (
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable classification of a resolution failure.
type ErrorKind string

// Resolution error kinds.
const (
	KindTypeConflict        ErrorKind = "token_type_conflict"
	KindPathCollision       ErrorKind = "token_path_collision"
	KindCircularReference   ErrorKind = "circular_reference"
	KindUnresolvedReference ErrorKind = "unresolved_reference"
	KindDepthExceeded       ErrorKind = "resolution_depth_exceeded"
)

// ResolutionError is implemented by every error the resolver returns. Kind
// gives callers a stable identifier; the Error string carries the locating
// context (layer name, token path).
type ResolutionError interface {
	error
	Kind() ErrorKind
}

// TypeConflictError reports a layer overriding a leaf value with a group (or
// a group with a leaf) at the same path. This is never coerced silently.
type TypeConflictError struct {
	// Layer is the layer attempting the override.
	Layer string
	// Path is the dotted token path of the conflict.
	Path string
	// Detail describes the direction of the mismatch.
	Detail string
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("layer %q: type conflict at %q: %s", e.Layer, e.Path, e.Detail)
}

// Kind returns KindTypeConflict.
func (e *TypeConflictError) Kind() ErrorKind { return KindTypeConflict }

// PathCollisionError reports a flattened namespace where one path is both a
// leaf and a prefix of another leaf (e.g. literal key "a.b" next to a nested
// a: {b: ...}).
type PathCollisionError struct {
	Path     string
	Conflict string
}

func (e *PathCollisionError) Error() string {
	return fmt.Sprintf("token path %q collides with %q: a path cannot be both a value and a parent", e.Path, e.Conflict)
}

// Kind returns KindPathCollision.
func (e *PathCollisionError) Kind() ErrorKind { return KindPathCollision }

// CircularReferenceError reports a reference cycle. Chain holds the full
// cycle, first and last element identical.
type CircularReferenceError struct {
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular token reference: %s", strings.Join(e.Chain, " -> "))
}

// Kind returns KindCircularReference.
func (e *CircularReferenceError) Kind() ErrorKind { return KindCircularReference }

// UnresolvedReferenceError reports a {path} reference naming a token absent
// from the merged map.
type UnresolvedReferenceError struct {
	// Missing is the path the reference names.
	Missing string
	// ReferencedBy is the token whose value contains the reference.
	ReferencedBy string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("token %q references %q, which is not defined in any layer", e.ReferencedBy, e.Missing)
}

// Kind returns KindUnresolvedReference.
func (e *UnresolvedReferenceError) Kind() ErrorKind { return KindUnresolvedReference }

// DepthExceededError is the defensive backstop against resolver bugs: it
// fires when substitution recurses deeper than the total token count, which
// no acyclic reference graph can do.
type DepthExceededError struct {
	Path  string
	Depth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("resolving %q exceeded maximum depth %d", e.Path, e.Depth)
}

// Kind returns KindDepthExceeded.
func (e *DepthExceededError) Kind() ErrorKind { return KindDepthExceeded }
