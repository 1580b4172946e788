package msbuild

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/refswitch/refswitch/internal/platform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Project is a loaded MSBuild project file.
type Project struct {
	Path string

	doc    *etree.Document
	indent string
	bom    bool
	crlf   bool
	dirty  bool
}

// IsProjectFile reports whether path has a project file extension this tool
// can edit.
func IsProjectFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csproj", ".vbproj", ".fsproj":
		return true
	}
	return false
}

// LoadProject reads and parses the project file at path.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", path, err)
	}

	p := &Project{Path: path}
	if bytes.HasPrefix(data, utf8BOM) {
		p.bom = true
		data = data[len(utf8BOM):]
	}
	p.crlf = bytes.Contains(data, []byte("\r\n"))

	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalAttrVal = true
	doc.WriteSettings.CanonicalText = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Project" {
		return nil, fmt.Errorf("parsing project %s: not an MSBuild project", path)
	}

	p.doc = doc
	p.indent = detectIndent(root)
	return p, nil
}

// Save writes the project back to disk if it was modified.
func (p *Project) Save() error {
	if !p.dirty {
		return nil
	}

	var buf bytes.Buffer
	if p.bom {
		buf.Write(utf8BOM)
	}
	if _, err := p.doc.WriteTo(&buf); err != nil {
		return fmt.Errorf("serializing project %s: %w", p.Path, err)
	}
	data := buf.Bytes()
	if p.crlf {
		data = bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
	}

	if err := os.WriteFile(p.Path, data, 0644); err != nil {
		return fmt.Errorf("writing project %s: %w", p.Path, err)
	}
	p.dirty = false
	return nil
}

// IsSDK reports whether the project uses the SDK-style format.
func (p *Project) IsSDK() bool {
	return p.doc.Root().SelectAttr("Sdk") != nil
}

// Property returns the first non-empty value of a property across all
// property groups. Conditions are not evaluated.
func (p *Project) Property(name string) string {
	return property(p.doc.Root(), name)
}

func property(root *etree.Element, name string) string {
	for _, group := range root.ChildElements() {
		if group.Tag != "PropertyGroup" {
			continue
		}
		if v, ok := childText(group, name); ok && v != "" {
			return v
		}
	}
	return ""
}

// AssemblyName returns the project's output assembly name. Without an
// explicit AssemblyName property MSBuild uses the project file name. An
// empty string means the name depends on properties that cannot be
// evaluated statically.
func (p *Project) AssemblyName() string {
	stem := platform.Stem(p.Path)
	name := p.Property("AssemblyName")
	if name == "" {
		return stem
	}
	name = strings.ReplaceAll(name, "$(MSBuildProjectName)", stem)
	if strings.Contains(name, "$(") {
		return ""
	}
	return name
}

// ReferencePaths returns the directories listed in the ReferencePath
// property of the project and of its .user file, absolute and in order.
func (p *Project) ReferencePaths() []string {
	values := []string{p.Property("ReferencePath")}

	userDoc := etree.NewDocument()
	if err := userDoc.ReadFromFile(p.Path + ".user"); err == nil && userDoc.Root() != nil {
		values = append(values, property(userDoc.Root(), "ReferencePath"))
	}

	var dirs []string
	for _, v := range values {
		for _, d := range strings.Split(v, ";") {
			d = strings.TrimSpace(d)
			if d == "" || strings.Contains(d, "$(") {
				continue
			}
			dirs = append(dirs, platform.ToAbsolute(d, p.Path))
		}
	}
	return dirs
}

// findInReferencePaths looks for name.dll or name.exe in the ReferencePath
// directories.
func (p *Project) findInReferencePaths(name string) string {
	for _, dir := range p.ReferencePaths() {
		for _, ext := range []string{".dll", ".exe"} {
			candidate := filepath.Join(dir, name+ext)
			if platform.FileExists(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// resolveAssembly mirrors the IDE's lookup order: ReferencePath directories
// first, then the item's HintPath.
func (p *Project) resolveAssembly(name, hintPath string) string {
	if found := p.findInReferencePaths(name); found != "" {
		return found
	}
	if hintPath != "" {
		return platform.ToAbsolute(hintPath, p.Path)
	}
	return ""
}

// Items returns every item of the given type in document order.
func (p *Project) Items(itemType string) []Item {
	var items []Item
	for _, group := range p.doc.Root().ChildElements() {
		if group.Tag != "ItemGroup" {
			continue
		}
		for _, e := range group.ChildElements() {
			if e.Tag == itemType {
				items = append(items, Item{Type: itemType, Include: e.SelectAttrValue("Include", ""), elem: e})
			}
		}
	}
	return items
}

// References returns the assembly and project references of the project in
// document order.
func (p *Project) References() []Reference {
	var refs []Reference
	for _, group := range p.doc.Root().ChildElements() {
		if group.Tag != "ItemGroup" {
			continue
		}
		for _, e := range group.ChildElements() {
			item := Item{Type: e.Tag, Include: e.SelectAttrValue("Include", ""), elem: e}
			switch e.Tag {
			case "Reference":
				refs = append(refs, p.assemblyReference(item))
			case "ProjectReference":
				refs = append(refs, p.projectReference(item))
			}
		}
	}
	return refs
}

func (p *Project) assemblyReference(item Item) Reference {
	name := simpleName(item.Include)
	return Reference{
		Kind:    AssemblyReference,
		Name:    name,
		Include: item.Include,
		Path:    p.resolveAssembly(name, item.Metadata("HintPath")),
		item:    item.elem,
	}
}

func (p *Project) projectReference(item Item) Reference {
	name := item.Metadata("Name")
	if name == "" {
		name = platform.Stem(item.Include)
	}
	return Reference{
		Kind:    ProjectReference,
		Name:    name,
		Include: item.Include,
		Target:  platform.ToAbsolute(item.Include, p.Path),
		item:    item.elem,
	}
}

// itemGroupFor returns an unconditioned ItemGroup already holding items of
// itemType, creating one after the last ItemGroup when none exists.
func (p *Project) itemGroupFor(itemType string) *etree.Element {
	root := p.doc.Root()
	var last *etree.Element
	for _, group := range root.ChildElements() {
		if group.Tag != "ItemGroup" {
			continue
		}
		last = group
		if group.SelectAttr("Condition") != nil {
			continue
		}
		for _, e := range group.ChildElements() {
			if e.Tag == itemType {
				return group
			}
		}
	}

	group := etree.NewElement("ItemGroup")
	if last != nil {
		insertAfter(last, group)
	} else {
		appendChild(root, group, p.indent)
	}
	return group
}

// AddProjectReference adds a reference to the project file at targetPath.
// An existing reference to the same file is returned unchanged.
func (p *Project) AddProjectReference(targetPath, guid, name string) Reference {
	for _, ref := range p.References() {
		if ref.Kind == ProjectReference && platform.SamePath(ref.Target, targetPath) {
			return ref
		}
	}

	include := platform.ToMSBuild(platform.ToRelative(targetPath, p.Path))
	group := p.itemGroupFor("ProjectReference")
	e := etree.NewElement("ProjectReference")
	e.CreateAttr("Include", include)
	appendChild(group, e, p.indent)
	if !p.IsSDK() {
		if guid != "" {
			appendChild(e, textElement("Project", strings.ToLower(guid)), p.indent)
		}
		appendChild(e, textElement("Name", name), p.indent)
	}
	p.dirty = true

	return p.projectReference(Item{Type: "ProjectReference", Include: include, elem: e})
}

// AddAssemblyReference adds a Reference item for id with a HintPath to
// artifactPath. If a reference with the same simple name exists it is
// returned unchanged.
func (p *Project) AddAssemblyReference(id Identity, artifactPath string) Reference {
	for _, ref := range p.References() {
		if ref.Kind == AssemblyReference && strings.EqualFold(ref.Name, id.Name) {
			return ref
		}
	}

	group := p.itemGroupFor("Reference")
	e := etree.NewElement("Reference")
	e.CreateAttr("Include", id.String())
	appendChild(group, e, p.indent)
	appendChild(e, textElement("HintPath", platform.ToMSBuild(platform.ToRelative(artifactPath, p.Path))), p.indent)
	p.dirty = true

	return p.assemblyReference(Item{Type: "Reference", Include: id.String(), elem: e})
}

// RemoveReference removes ref from the project. The enclosing ItemGroup is
// dropped when it becomes empty.
func (p *Project) RemoveReference(ref Reference) error {
	e := ref.item
	if e == nil || e.Parent() == nil || !p.owns(e) {
		return fmt.Errorf("reference %q is not part of %s", ref.Include, p.Path)
	}

	group := e.Parent()
	removeElement(e)
	if len(group.ChildElements()) == 0 {
		removeElement(group)
	}
	p.dirty = true
	return nil
}

// SetMetadata sets a metadata value on item, updating an attribute or child
// element in place when one exists.
func (p *Project) SetMetadata(item Item, key, value string) error {
	e := item.elem
	if e == nil || !p.owns(e) {
		return fmt.Errorf("item %q is not part of %s", item.Include, p.Path)
	}

	if attr := e.SelectAttr(key); attr != nil {
		attr.Value = value
	} else if child := e.SelectElement(key); child != nil {
		child.SetText(value)
	} else {
		appendChild(e, textElement(key, value), p.indent)
	}
	p.dirty = true
	return nil
}

func (p *Project) owns(e *etree.Element) bool {
	root := p.doc.Root()
	for cur := e; cur != nil; cur = cur.Parent() {
		if cur == root {
			return true
		}
	}
	return false
}
