package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultSuffix is appended to the solution file name to name its artifact.
const DefaultSuffix = ".switchReferences.yaml"

// ErrCorrupt is returned by Load and Read when the artifact cannot be read
// or decoded. Load has moved the damaged file aside by then; Read leaves it
// in place.
var ErrCorrupt = errors.New("state artifact is corrupt")

// fileMode is the permission of a saved artifact, matching project files.
const fileMode = 0644

// Path returns the artifact location for a solution: the solution's own file
// name followed by suffix, in the solution's directory.
func Path(solutionPath, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return filepath.Join(filepath.Dir(solutionPath), filepath.Base(solutionPath)+suffix)
}

type document struct {
	Version string   `yaml:"version"`
	Changes []Record `yaml:"changes"`
}

// Store loads and saves change sets next to their solution.
type Store struct {
	Suffix string
}

// NewStore returns a Store using suffix, or DefaultSuffix when empty.
func NewStore(suffix string) *Store {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Store{Suffix: suffix}
}

// Path returns the artifact location for solutionPath.
func (s *Store) Path(solutionPath string) string {
	return Path(solutionPath, s.Suffix)
}

// Load reads the change set of a solution. A missing artifact yields an empty
// set. A damaged or unreadable one is renamed to "<artifact>.corrupt" and
// yields an empty set together with an error wrapping ErrCorrupt. If it cannot
// be moved aside the error does not wrap ErrCorrupt, so callers stop instead
// of overwriting it.
func (s *Store) Load(solutionPath string) (*ChangeSet, error) {
	path := s.Path(solutionPath)
	set, damaged, err := decodeFile(path)
	if !damaged {
		return set, err
	}

	dst := path + ".corrupt"
	if rerr := os.Rename(path, dst); rerr != nil {
		return nil, fmt.Errorf("%s is damaged (%v) and could not be moved aside: %w", path, err, rerr)
	}
	return NewChangeSet(), fmt.Errorf("%w: %s moved to %s: %w", ErrCorrupt, path, dst, err)
}

// Read is Load without side effects: a damaged or unreadable artifact is
// reported through an error wrapping ErrCorrupt and left where it is.
func (s *Store) Read(solutionPath string) (*ChangeSet, error) {
	path := s.Path(solutionPath)
	set, damaged, err := decodeFile(path)
	if damaged {
		return NewChangeSet(), fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	return set, err
}

// decodeFile reads the artifact at path. damaged is set when err concerns
// the file's readability or content rather than its format version.
func decodeFile(path string) (set *ChangeSet, damaged bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewChangeSet(), false, nil
	}
	if err != nil {
		return nil, true, err
	}

	set, err = Decode(data)
	if errors.Is(err, ErrUnsupportedVersion) {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	if err != nil {
		return nil, true, err
	}
	return set, false, nil
}

// Decode parses artifact bytes.
func Decode(data []byte) (*ChangeSet, error) {
	issues, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("invalid state document: %s", issues[0])
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing state document: %w", err)
	}
	if err := checkFormat(doc.Version); err != nil {
		return nil, err
	}

	set := NewChangeSet()
	for _, r := range doc.Changes {
		set.AddOrUpdate(r.Source, r.Referenced, r.KnownPath)
	}
	return set, nil
}

// Encode renders a change set in the artifact format.
func Encode(set *ChangeSet) ([]byte, error) {
	doc := document{Version: FormatVersion, Changes: set.Records()}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling state document: %w", err)
	}
	return data, nil
}

// Save writes the change set of a solution atomically.
func (s *Store) Save(solutionPath string, set *ChangeSet) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}

	path := s.Path(solutionPath)
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("setting mode of %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Delete removes the artifact of a solution if present.
func (s *Store) Delete(solutionPath string) error {
	path := s.Path(solutionPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the artifact of a solution is present.
func (s *Store) Exists(solutionPath string) bool {
	_, err := os.Stat(s.Path(solutionPath))
	return err == nil
}
