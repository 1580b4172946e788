package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/refswitch/refswitch/internal/platform"
)

// FolderTypeGUID is the project type GUID Visual Studio uses for solution folders.
const FolderTypeGUID = "{2150E333-8FDC-42A3-9474-1A3956D46DE8}"

// ErrUnsavedWorkspace is returned when a solution has no on-disk identity.
var ErrUnsavedWorkspace = errors.New("the solution must be saved first")

// UnitKind distinguishes buildable projects from grouping folders.
type UnitKind int

const (
	KindProject UnitKind = iota
	KindFolder
)

func (k UnitKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "project"
}

// Unit is a node of the solution tree.
type Unit struct {
	Name     string
	GUID     string
	TypeGUID string
	Kind     UnitKind
	Children []*Unit

	// UniqueName is the project path as written in the solution file, relative
	// to the solution directory (e.g. `Lib\Lib.csproj`). Folders use their GUID.
	UniqueName string

	// Path is the absolute project file path. Empty for folders.
	Path string
}

// Solution is a parsed .sln file.
type Solution struct {
	// Path is the absolute solution file path.
	Path string

	// Roots holds the top-level units in file order.
	Roots []*Unit

	units []*Unit
	byID  map[string]*Unit
}

var projectLine = regexp.MustCompile(`^Project\("(\{[^}]+\})"\)\s*=\s*"([^"]*)"\s*,\s*"([^"]*)"\s*,\s*"(\{[^}]+\})"`)

var nestedLine = regexp.MustCompile(`^(\{[^}]+\})\s*=\s*(\{[^}]+\})$`)

// Open reads and parses the solution at path.
func Open(path string) (*Solution, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrUnsavedWorkspace
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving solution path %s: %w", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrUnsavedWorkspace, abs)
		}
		return nil, fmt.Errorf("opening solution: %w", err)
	}
	defer f.Close()

	sln := &Solution{Path: abs, byID: make(map[string]*Unit)}
	parents := make(map[string]string)
	inNested := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		switch {
		case strings.HasPrefix(line, "Project("):
			m := projectLine.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("parsing solution %s: malformed project line %q", abs, line)
			}
			sln.add(newUnit(abs, m[1], m[2], m[3], m[4]))
		case strings.HasPrefix(line, "GlobalSection(NestedProjects)"):
			inNested = true
		case strings.HasPrefix(line, "EndGlobalSection"):
			inNested = false
		case inNested:
			if m := nestedLine.FindStringSubmatch(line); m != nil {
				parents[strings.ToUpper(m[1])] = strings.ToUpper(m[2])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading solution %s: %w", abs, err)
	}

	sln.link(parents)
	return sln, nil
}

func newUnit(slnPath, typeGUID, name, relPath, guid string) *Unit {
	u := &Unit{
		Name:     name,
		GUID:     strings.ToUpper(guid),
		TypeGUID: strings.ToUpper(typeGUID),
	}
	if strings.EqualFold(typeGUID, FolderTypeGUID) {
		u.Kind = KindFolder
		u.UniqueName = u.GUID
		return u
	}
	u.Kind = KindProject
	u.UniqueName = relPath
	u.Path = platform.ToAbsolute(relPath, slnPath)
	return u
}

func (s *Solution) add(u *Unit) {
	s.units = append(s.units, u)
	s.byID[u.GUID] = u
}

// link builds the folder tree from the NestedProjects section. Entries that
// point at unknown parents leave the child at the top level.
func (s *Solution) link(parents map[string]string) {
	for _, u := range s.units {
		parentID, ok := parents[u.GUID]
		if !ok {
			s.Roots = append(s.Roots, u)
			continue
		}
		parent, ok := s.byID[parentID]
		if !ok || parent == u {
			s.Roots = append(s.Roots, u)
			continue
		}
		parent.Children = append(parent.Children, u)
	}
}

// Dir returns the directory holding the solution file.
func (s *Solution) Dir() string {
	return filepath.Dir(s.Path)
}

// Lookup returns the unit with the given unique name among all units of the
// solution, or nil.
func (s *Solution) Lookup(uniqueName string) *Unit {
	for _, u := range s.units {
		if u.UniqueName == uniqueName {
			return u
		}
	}
	return nil
}

// Units returns every unit in file order, folders included.
func (s *Solution) Units() []*Unit {
	return s.units
}
