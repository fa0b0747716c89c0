package ooxml

// StandardNamespaces maps the conventional OOXML prefixes to their URIs.
// Parts declare their own prefixes; this table guards against a patch spec
// rebinding a conventional prefix to some other URI.
var StandardNamespaces = map[string]string{
	"a":   "http://schemas.openxmlformats.org/drawingml/2006/main",
	"p":   "http://schemas.openxmlformats.org/presentationml/2006/main",
	"w":   "http://schemas.openxmlformats.org/wordprocessingml/2006/main",
	"x":   "http://schemas.openxmlformats.org/spreadsheetml/2006/main",
	"r":   "http://schemas.openxmlformats.org/officeDocument/2006/relationships",
	"mc":  "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"ct":  "http://schemas.openxmlformats.org/package/2006/content-types",
	"rel": RelationshipsNamespace,
}

// ContentTypesPart is the fixed archive path of the content-types part every
// OOXML package carries.
const ContentTypesPart = "[Content_Types].xml"
