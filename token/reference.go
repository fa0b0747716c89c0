package token

import "strings"

// Segment is one piece of a parsed raw value: either a literal run of text
// or a {path} reference. Exactly one field is populated.
type Segment struct {
	// Literal is verbatim text. Empty for reference segments.
	Literal string
	// Ref is the referenced token path. Empty for literal segments.
	Ref string
}

// ParseValue splits a raw string value into literal and reference segments.
// A braced run is a reference only when its content is a valid token path
// (dot-separated, non-empty segments of path runes); anything else,
// including unterminated braces, stays literal. This keeps payloads that
// legitimately contain braces (XML fragments, format strings) intact.
func ParseValue(s string) []Segment {
	var segs []Segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Segment{Literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		open := strings.IndexByte(s[i:], '{')
		if open < 0 {
			lit.WriteString(s[i:])
			break
		}
		open += i
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			lit.WriteString(s[i:])
			break
		}
		end += open
		path := s[open+1 : end]
		if !ValidPath(path) {
			lit.WriteString(s[i : open+1])
			i = open + 1
			continue
		}
		lit.WriteString(s[i:open])
		flush()
		segs = append(segs, Segment{Ref: path})
		i = end + 1
	}
	flush()
	return segs
}

// HasReferences reports whether the string contains at least one token
// reference.
func HasReferences(s string) bool {
	for _, seg := range ParseValue(s) {
		if seg.Ref != "" {
			return true
		}
	}
	return false
}

// ValidPath reports whether s is a well-formed token path: one or more
// non-empty dot-separated segments of letters, digits, '_', '-' or '$'.
func ValidPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if !isPathRune(r) {
				return false
			}
		}
	}
	return true
}

func isPathRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '$':
		return true
	}
	return false
}
