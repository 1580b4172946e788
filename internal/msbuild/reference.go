package msbuild

import (
	"strings"

	"github.com/beevik/etree"
)

// ReferenceKind tells assembly references from project references.
type ReferenceKind int

const (
	AssemblyReference ReferenceKind = iota
	ProjectReference
)

func (k ReferenceKind) String() string {
	if k == ProjectReference {
		return "project"
	}
	return "assembly"
}

// Reference is a dependency edge declared by a project. Path is meaningful
// for assembly references, Target for project references.
type Reference struct {
	Kind    ReferenceKind
	Include string

	// Name is the simple assembly name for assembly references and the
	// referenced project's name for project references.
	Name string

	// Path is the resolved artifact path, empty when it cannot be resolved.
	Path string

	// Target is the absolute path of the referenced project file.
	Target string

	item *etree.Element
}

// Item is a raw build item, used for low-level metadata edits.
type Item struct {
	Type    string
	Include string

	elem *etree.Element
}

// Metadata returns the value of a metadata key written either as an
// attribute or as a child element.
func (i Item) Metadata(key string) string {
	if i.elem == nil {
		return ""
	}
	if v := i.elem.SelectAttrValue(key, ""); v != "" {
		return v
	}
	if v, ok := childText(i.elem, key); ok {
		return v
	}
	return ""
}

// Identity parses the item's include as an assembly identity.
func (i Item) Identity() (Identity, error) {
	return ParseIdentity(strings.TrimSpace(i.Include))
}
