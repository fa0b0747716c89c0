// Package ooxml models an Office Open XML package: a ZIP archive of XML
// parts plus relationship documents, as used by .potx/.dotx/.xltx templates.
//
// Parts are parsed lazily. Any part never opened as XML is written back to
// the output archive as a raw compressed-stream copy, so untouched parts
// stay byte-identical between input and output.
package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/beevik/etree"
)

// Package is an OOXML container held in memory. Part order follows the
// source archive; parts added later append.
type Package struct {
	parts []*Part
	index map[string]*Part
}

// ReadFile loads an OOXML package from a file on disk.
func ReadFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read package: %w", err)
	}
	return ReadBytes(data)
}

// ReadBytes loads an OOXML package from ZIP archive bytes.
func ReadBytes(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package archive: %w", err)
	}

	pkg := &Package{index: make(map[string]*Part, len(zr.File))}
	for _, f := range zr.File {
		part := &Part{Name: f.Name, source: f}
		pkg.parts = append(pkg.parts, part)
		pkg.index[f.Name] = part
	}
	return pkg, nil
}

// Validate checks the package carries the mandatory content-types part.
// ZIP archives without it are not OOXML packages.
func (p *Package) Validate() error {
	if p.Part(ContentTypesPart) == nil {
		return fmt.Errorf("not an OOXML package: missing %s", ContentTypesPart)
	}
	return nil
}

// Part returns the named part, or nil if the package has no such part.
func (p *Package) Part(name string) *Part {
	return p.index[name]
}

// Names returns every part name in archive order.
func (p *Package) Names() []string {
	names := make([]string, len(p.parts))
	for i, part := range p.parts {
		names[i] = part.Name
	}
	return names
}

// AddPart appends a new part with the given bytes. Adding an existing name
// replaces that part's content instead.
func (p *Package) AddPart(name string, data []byte) *Part {
	if part, ok := p.index[name]; ok {
		part.SetBytes(data)
		return part
	}
	part := &Part{Name: name, replaced: data}
	p.parts = append(p.parts, part)
	p.index[name] = part
	return part
}

// WriteFile serializes the package to a new archive on disk.
func (p *Package) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write package: %w", err)
	}
	return nil
}

// Write serializes the package. Unmodified parts are copied from the source
// archive without recompression; modified and added parts are deflated
// fresh.
func (p *Package) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, part := range p.parts {
		if err := part.writeTo(zw); err != nil {
			zw.Close()
			return fmt.Errorf("write part %s: %w", part.Name, err)
		}
	}
	return zw.Close()
}

// Part is one document inside the package, identified by its archive path.
type Part struct {
	Name string

	source   *zip.File // original archive entry; nil for added parts
	replaced []byte    // non-nil once the part has been rewritten
}

// Bytes returns the part's current content.
func (pt *Part) Bytes() ([]byte, error) {
	if pt.replaced != nil {
		return pt.replaced, nil
	}
	rc, err := pt.source.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", pt.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", pt.Name, err)
	}
	return data, nil
}

// SetBytes replaces the part's content. The original archive entry is no
// longer used for this part.
func (pt *Part) SetBytes(data []byte) {
	pt.replaced = data
}

// Modified reports whether the part's content differs from the source
// archive entry.
func (pt *Part) Modified() bool {
	return pt.replaced != nil
}

// Document parses the part as XML. Each call parses fresh from the current
// bytes so callers own their DOM copy; a part that fails to parse is a
// MalformedPartError.
func (pt *Part) Document() (*etree.Document, error) {
	data, err := pt.Bytes()
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &MalformedPartError{Part: pt.Name, Err: err}
	}
	if doc.Root() == nil {
		return nil, &MalformedPartError{Part: pt.Name, Err: fmt.Errorf("no root element")}
	}
	return doc, nil
}

// Namespaces returns the prefix-to-URI map declared anywhere in the part.
// The empty-string key holds the default namespace when one is declared.
func (pt *Part) Namespaces() (map[string]string, error) {
	doc, err := pt.Document()
	if err != nil {
		return nil, err
	}
	return DocumentNamespaces(doc), nil
}

// DocumentNamespaces harvests the prefix-to-URI map declared anywhere in an
// already-parsed document, mutations included.
func DocumentNamespaces(doc *etree.Document) map[string]string {
	ns := make(map[string]string)
	if root := doc.Root(); root != nil {
		collectNamespaces(root, ns)
	}
	return ns
}

func collectNamespaces(el *etree.Element, ns map[string]string) {
	for _, attr := range el.Attr {
		switch {
		case attr.Space == "xmlns":
			ns[attr.Key] = attr.Value
		case attr.Space == "" && attr.Key == "xmlns":
			ns[""] = attr.Value
		}
	}
	for _, child := range el.ChildElements() {
		collectNamespaces(child, ns)
	}
}

func (pt *Part) writeTo(zw *zip.Writer) error {
	if pt.replaced == nil && pt.source != nil {
		return zw.Copy(pt.source)
	}

	hdr := &zip.FileHeader{Name: pt.Name, Method: zip.Deflate}
	if pt.source != nil {
		hdr.Modified = pt.source.Modified
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(pt.replaced)
	return err
}

// MalformedPartError reports a part that fails to parse as XML. This is an
// input-integrity failure: always fatal, regardless of patch policy.
type MalformedPartError struct {
	Part string
	Err  error
}

func (e *MalformedPartError) Error() string {
	return fmt.Sprintf("part %s is not well-formed XML: %v", e.Part, e.Err)
}

func (e *MalformedPartError) Unwrap() error { return e.Err }

// SortedNames returns part names in lexical order, for stable diagnostics.
func (p *Package) SortedNames() []string {
	names := p.Names()
	sort.Strings(names)
	return names
}
