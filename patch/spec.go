package patch

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/brandforge/brandforge/ooxml"
)

// Kind enumerates the patch operation verbs. The set is closed: specs with
// any other value are rejected at load time, and the engine dispatches with
// an exhaustive switch.
type Kind string

// Operation kinds.
const (
	KindSet     Kind = "set"
	KindInsert  Kind = "insert"
	KindExtend  Kind = "extend"
	KindMerge   Kind = "merge"
	KindRelsAdd Kind = "relsAdd"
)

var kinds = map[Kind]bool{
	KindSet:     true,
	KindInsert:  true,
	KindExtend:  true,
	KindMerge:   true,
	KindRelsAdd: true,
}

// Position says where an insert places the new node relative to the match.
type Position string

// Insert positions. Empty defaults to PositionChild.
const (
	PositionChild  Position = "child"
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

// Spec is one patch document: an ordered list of operations plus optional
// extra namespace declarations for XPath prefixes the targeted parts do not
// declare themselves.
type Spec struct {
	// Description is free-form documentation, carried for diagnostics only.
	Description string `yaml:"description"`

	// Namespaces adds prefix->URI declarations usable in this spec's XPaths.
	Namespaces map[string]string `yaml:"namespaces"`

	// Ops are applied in list order. Later operations may target nodes
	// created by earlier ones.
	Ops []Operation `yaml:"ops"`
}

// Operation is a single declarative patch instruction.
type Operation struct {
	// Part is the archive path of the target part. Glob patterns
	// (doublestar syntax) select every matching part.
	Part string `yaml:"part"`

	// XPath locates the target node(s) within the part. Unused by relsAdd.
	XPath string `yaml:"xpath"`

	// Op is the operation kind.
	Op Kind `yaml:"op"`

	// Payload is the value or XML fragment to apply. May contain
	// {token.path} references, substituted from the resolved token map.
	Payload string `yaml:"payload"`

	// Attribute names the attribute a set operation writes. Empty means the
	// node's text content.
	Attribute string `yaml:"attribute"`

	// Position qualifies insert operations (child, before, after).
	Position Position `yaml:"position"`

	// Single declares the operation single-target: more than one XPath
	// match is a configuration error.
	Single bool `yaml:"single"`

	// IfAbsent suppresses the zero-match error for insert operations,
	// turning a missing target into a no-op.
	IfAbsent bool `yaml:"ifAbsent"`

	// Rel carries the relationship fields for relsAdd.
	Rel *Rel `yaml:"rel"`
}

// Rel describes a relationship entry added by relsAdd.
type Rel struct {
	// Type is the relationship type URI.
	Type string `yaml:"type"`

	// Target is the relationship target, relative to the owning part.
	Target string `yaml:"target"`

	// Mode is empty for internal targets or "External".
	Mode string `yaml:"mode"`

	// As names the generated ID for later operations in the same
	// transaction: an op may reference it as {rels.<name>}.
	As string `yaml:"as"`
}

// LoadSpecFile reads and validates a patch spec document.
func LoadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patch spec: %w", err)
	}
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, fmt.Errorf("patch spec %s: %w", path, err)
	}
	return spec, nil
}

// ParseSpec parses and validates a patch spec from YAML bytes.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks structural correctness of every operation.
func (s *Spec) Validate() error {
	for prefix, uri := range s.Namespaces {
		if std, ok := ooxml.StandardNamespaces[prefix]; ok && std != uri {
			return fmt.Errorf("namespace prefix %q is conventionally bound to %s", prefix, std)
		}
	}
	for i, op := range s.Ops {
		if err := op.validate(); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}

func (op *Operation) validate() error {
	if op.Part == "" {
		return fmt.Errorf("part is required")
	}
	if !kinds[op.Op] {
		return fmt.Errorf("unknown operation kind %q", op.Op)
	}
	switch op.Op {
	case KindRelsAdd:
		if op.Rel == nil {
			return fmt.Errorf("relsAdd requires a rel block")
		}
		if op.Rel.Type == "" || op.Rel.Target == "" {
			return fmt.Errorf("relsAdd requires rel.type and rel.target")
		}
		if op.Rel.Mode != "" && op.Rel.Mode != "External" {
			return fmt.Errorf("rel.mode must be empty or %q", "External")
		}
		if op.Rel.As != "" && isGlob(op.Part) {
			return fmt.Errorf("rel.as requires a single part, not a pattern")
		}
	default:
		if op.XPath == "" {
			return fmt.Errorf("xpath is required for %s", op.Op)
		}
	}
	switch op.Position {
	case "", PositionChild, PositionBefore, PositionAfter:
	default:
		return fmt.Errorf("unknown position %q", op.Position)
	}
	if op.Position != "" && op.Op != KindInsert {
		return fmt.Errorf("position applies only to insert")
	}
	if op.IfAbsent && op.Op != KindInsert {
		return fmt.Errorf("ifAbsent applies only to insert")
	}
	if op.Attribute != "" && op.Op != KindSet {
		return fmt.Errorf("attribute applies only to set")
	}
	return nil
}

// isGlob reports whether a part selector uses pattern metacharacters.
func isGlob(part string) bool {
	return strings.ContainsAny(part, "*?[{")
}

// matchParts expands an operation's part selector against the package.
func matchParts(pkg *ooxml.Package, selector string) ([]string, error) {
	if !isGlob(selector) {
		if pkg.Part(selector) == nil {
			return nil, nil
		}
		return []string{selector}, nil
	}
	var matched []string
	for _, name := range pkg.Names() {
		ok, err := doublestar.Match(selector, name)
		if err != nil {
			return nil, fmt.Errorf("part pattern %q: %w", selector, err)
		}
		if ok {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// PartsTouched returns the set of part names (including companion .rels
// documents for relsAdd) the specs would modify on the given package, in
// sorted order. Callers can use it to schedule disjoint part groups
// concurrently while keeping each transaction sequential.
func PartsTouched(pkg *ooxml.Package, specs []*Spec) ([]string, error) {
	set := make(map[string]bool)
	for _, spec := range specs {
		for _, op := range spec.Ops {
			names, err := matchParts(pkg, op.Part)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				if op.Op == KindRelsAdd {
					set[ooxml.RelsPath(name)] = true
				} else {
					set[name] = true
				}
			}
		}
	}
	touched := make([]string, 0, len(set))
	for name := range set {
		touched = append(touched, name)
	}
	sort.Strings(touched)
	return touched, nil
}
