package switcher

import (
	"fmt"
	"log/slog"

	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/workspace"
)

// Match is an assembly reference held by Source that resolves to Target's
// output.
type Match struct {
	Source    *workspace.Unit
	Reference msbuild.Reference
	Target    *workspace.Unit
}

// Matcher finds assembly references that can become project references.
type Matcher struct {
	Store ReferenceStore

	// Logger receives debug output; nil means slog.Default.
	Logger *slog.Logger
}

// FindReferencesToConvert returns every assembly reference, held by any unit
// other than target, whose name equals target's output assembly name. Names
// compare ordinally and case-sensitively. A target without an output name
// yields no matches.
func (m Matcher) FindReferencesToConvert(target *workspace.Unit, units []*workspace.Unit) ([]Match, error) {
	name, err := m.Store.AssemblyName(target)
	if err != nil {
		logger(m.Logger).Debug("no output name", slog.String("unit", target.Name), slog.String("error", err.Error()))
		return nil, nil
	}
	if name == "" {
		return nil, nil
	}

	var matches []Match
	for _, u := range units {
		if u.UniqueName == target.UniqueName {
			continue
		}
		refs, err := m.Store.ListReferences(u)
		if err != nil {
			return nil, fmt.Errorf("listing references of %s: %w", u.Name, err)
		}
		for _, ref := range refs {
			if ref.Kind == msbuild.AssemblyReference && ref.Name == name {
				matches = append(matches, Match{Source: u, Reference: ref, Target: target})
			}
		}
	}
	return matches, nil
}
