package ooxml

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// RelationshipsNamespace is the namespace of OOXML relationship documents.
const RelationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"

// RelsPath returns the archive path of the companion .rels document for a
// part: ppt/theme/theme1.xml -> ppt/theme/_rels/theme1.xml.rels. The empty
// string names the package-level rels, _rels/.rels.
func RelsPath(partName string) string {
	if partName == "" {
		return "_rels/.rels"
	}
	dir, base := path.Split(partName)
	return dir + "_rels/" + base + ".rels"
}

// NewRelationshipsDocument builds an empty relationship document with the
// standard declaration and namespace.
func NewRelationshipsDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", RelationshipsNamespace)
	return doc
}

// NextRelationshipID returns the lowest unused rIdN identifier in the
// document, following the sequential convention Office producers use.
func NextRelationshipID(doc *etree.Document) string {
	max := 0
	root := doc.Root()
	if root != nil {
		for _, rel := range root.ChildElements() {
			id := rel.SelectAttrValue("Id", "")
			n, ok := parseRelationshipID(id)
			if ok && n > max {
				max = n
			}
		}
	}
	return "rId" + strconv.Itoa(max+1)
}

func parseRelationshipID(id string) (int, bool) {
	if !strings.HasPrefix(id, "rId") {
		return 0, false
	}
	n, err := strconv.Atoi(id[len("rId"):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// AddRelationship appends a Relationship entry and returns its generated ID.
// mode is empty for internal targets or "External".
func AddRelationship(doc *etree.Document, relType, target, mode string) (string, error) {
	root := doc.Root()
	if root == nil || root.Tag != "Relationships" {
		return "", fmt.Errorf("not a relationships document")
	}
	id := NextRelationshipID(doc)
	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	if mode != "" {
		rel.CreateAttr("TargetMode", mode)
	}
	return id, nil
}
