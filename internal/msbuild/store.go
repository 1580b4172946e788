package msbuild

import (
	"fmt"

	"github.com/refswitch/refswitch/internal/platform"
	"github.com/refswitch/refswitch/internal/workspace"
)

// Store gives unit-level access to project files. Projects are loaded once
// and every mutation is written back immediately.
type Store struct {
	projects map[string]*Project
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{projects: make(map[string]*Project)}
}

// Project returns the loaded project file of a unit.
func (s *Store) Project(u *workspace.Unit) (*Project, error) {
	if u.Kind != workspace.KindProject || u.Path == "" {
		return nil, fmt.Errorf("%s is not a project", u.Name)
	}
	if p, ok := s.projects[u.Path]; ok {
		return p, nil
	}
	p, err := LoadProject(u.Path)
	if err != nil {
		return nil, err
	}
	s.projects[u.Path] = p
	return p, nil
}

// Editable is a workspace.Predicate accepting project units whose file can be
// loaded. Load failures surface as errors so the collector excludes the unit.
func (s *Store) Editable(u *workspace.Unit) (bool, error) {
	if u.Kind != workspace.KindProject || !IsProjectFile(u.Path) {
		return false, nil
	}
	if _, err := s.Project(u); err != nil {
		return false, err
	}
	return true, nil
}

// AssemblyName returns the output assembly name of a unit.
func (s *Store) AssemblyName(u *workspace.Unit) (string, error) {
	p, err := s.Project(u)
	if err != nil {
		return "", err
	}
	return p.AssemblyName(), nil
}

// ListReferences returns the references of a unit.
func (s *Store) ListReferences(u *workspace.Unit) ([]Reference, error) {
	p, err := s.Project(u)
	if err != nil {
		return nil, err
	}
	return p.References(), nil
}

// AddProjectReference makes u reference target's project file.
func (s *Store) AddProjectReference(u, target *workspace.Unit) error {
	p, err := s.Project(u)
	if err != nil {
		return err
	}
	p.AddProjectReference(target.Path, target.GUID, target.Name)
	return p.Save()
}

// AddAssemblyReference adds a reference to the assembly at path. Like the
// IDE, the store prefers a same-named file found in the project's
// ReferencePath directories over the path it was given, so the returned
// reference may resolve elsewhere.
func (s *Store) AddAssemblyReference(u *workspace.Unit, path string) (Reference, error) {
	p, err := s.Project(u)
	if err != nil {
		return Reference{}, err
	}

	resolved := path
	if found := p.findInReferencePaths(platform.Stem(path)); found != "" {
		resolved = found
	}

	ref := p.AddAssemblyReference(ReadIdentity(resolved), resolved)
	if err := p.Save(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// RemoveReference removes ref from u.
func (s *Store) RemoveReference(u *workspace.Unit, ref Reference) error {
	p, err := s.Project(u)
	if err != nil {
		return err
	}
	if err := p.RemoveReference(ref); err != nil {
		return err
	}
	return p.Save()
}

// ReferenceItems returns the raw Reference items of u.
func (s *Store) ReferenceItems(u *workspace.Unit) ([]Item, error) {
	p, err := s.Project(u)
	if err != nil {
		return nil, err
	}
	return p.Items("Reference"), nil
}

// SetHintPath rewrites the HintPath metadata of item. hintPath may use
// either separator; it is stored in MSBuild form.
func (s *Store) SetHintPath(u *workspace.Unit, item Item, hintPath string) error {
	p, err := s.Project(u)
	if err != nil {
		return err
	}
	if err := p.SetMetadata(item, "HintPath", platform.ToMSBuild(hintPath)); err != nil {
		return err
	}
	return p.Save()
}

// ReadIdentity returns the identity of the assembly file at path.
func (s *Store) ReadIdentity(path string) Identity {
	return ReadIdentity(path)
}
