package patch

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/brandforge/brandforge/token"
)

// parseFragment parses a payload as a single XML element.
func parseFragment(payload string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(payload); err != nil {
		return nil, fmt.Errorf("payload is not well-formed XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("payload contains no element")
	}
	return root, nil
}

// parseFragments parses a payload that may hold several sibling elements,
// as extend payloads often do (e.g. a run of gradient stops).
func parseFragments(payload string) ([]*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<fragments>" + payload + "</fragments>"); err != nil {
		return nil, fmt.Errorf("payload is not well-formed XML: %w", err)
	}
	children := doc.Root().ChildElements()
	if len(children) == 0 {
		return nil, fmt.Errorf("payload contains no elements")
	}
	return children, nil
}

// applySet writes the payload into each match: the named attribute when
// Attribute is set, the node's text content otherwise.
func applySet(matches []*etree.Element, attribute, payload string) {
	for _, m := range matches {
		if attribute != "" {
			m.CreateAttr(attribute, payload)
		} else {
			m.SetText(payload)
		}
	}
}

// applyInsert places a copy of the fragment at the requested position
// relative to each match.
func applyInsert(matches []*etree.Element, pos Position, frag *etree.Element) error {
	for _, m := range matches {
		el := frag.Copy()
		switch pos {
		case "", PositionChild:
			m.AddChild(el)
		case PositionBefore, PositionAfter:
			parent := m.Parent()
			if parent == nil {
				return fmt.Errorf("cannot insert a sibling of the root element")
			}
			idx := m.Index()
			if pos == PositionAfter {
				idx++
			}
			parent.InsertChildAt(idx, el)
		}
	}
	return nil
}

// applyExtend appends copies of the fragments as trailing children of each
// match, leaving existing children in place.
func applyExtend(matches []*etree.Element, frags []*etree.Element) {
	for _, m := range matches {
		for _, frag := range frags {
			m.AddChild(frag.Copy())
		}
	}
}

// applyMerge merges the fragment's attribute set onto each match: colliding
// attributes take the payload's value, others are preserved.
func applyMerge(matches []*etree.Element, frag *etree.Element) {
	for _, m := range matches {
		for _, attr := range frag.Attr {
			key := attr.Key
			if attr.Space != "" {
				key = attr.Space + ":" + attr.Key
			}
			m.CreateAttr(key, attr.Value)
		}
	}
}

// xpathPrefixes extracts the namespace prefixes an XPath expression uses,
// ignoring anything inside quoted literals.
func xpathPrefixes(xpath string) []string {
	var prefixes []string
	seen := make(map[string]bool)

	var ident strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(xpath); i++ {
		c := xpath[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			inQuote = c
			ident.Reset()
		case isIdentByte(c):
			ident.WriteByte(c)
		case c == ':' && ident.Len() > 0:
			p := ident.String()
			if !seen[p] {
				seen[p] = true
				prefixes = append(prefixes, p)
			}
			ident.Reset()
		default:
			ident.Reset()
		}
	}
	return prefixes
}

func isIdentByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '-', c == '.':
		return true
	}
	return false
}

// substitute replaces {token.path} references in a payload using the
// resolved token map, plus transaction-scoped {rels.<name>} values from
// earlier relsAdd operations. The resolver guarantees completeness, so a
// missing token here is an invariant violation, not user error.
func substitute(s string, tokens map[string]any, relValues map[string]string) (string, error) {
	segs := token.ParseValue(s)
	var out strings.Builder
	for _, seg := range segs {
		if seg.Ref == "" {
			out.WriteString(seg.Literal)
			continue
		}
		if rest, ok := strings.CutPrefix(seg.Ref, "rels."); ok {
			id, ok := relValues[rest]
			if !ok {
				return "", fmt.Errorf("no relationship named %q has been added in this transaction", rest)
			}
			out.WriteString(id)
			continue
		}
		val, ok := tokens[seg.Ref]
		if !ok {
			return "", fmt.Errorf("token %q is not in the resolved map", seg.Ref)
		}
		out.WriteString(fmt.Sprintf("%v", val))
	}
	return out.String(), nil
}
