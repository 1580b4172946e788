package switcher

import (
	"fmt"
	"log/slog"

	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/platform"
	"github.com/refswitch/refswitch/internal/workspace"
)

// Outcome is what Restore did for one recorded edge.
type Outcome int

const (
	// OutcomeUnchanged means an assembly reference to the path already existed.
	OutcomeUnchanged Outcome = iota
	// OutcomeMissingFile means the recorded artifact is gone; nothing was added.
	OutcomeMissingFile
	// OutcomeRestored means the assembly reference was added as recorded.
	OutcomeRestored
	// OutcomeRepaired means the store resolved the new reference elsewhere and
	// its HintPath was rewritten to the recorded path.
	OutcomeRepaired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMissingFile:
		return "missing-file"
	case OutcomeRestored:
		return "restored"
	case OutcomeRepaired:
		return "repaired"
	default:
		return "unchanged"
	}
}

// Reconciler turns a project reference back into an assembly reference.
type Reconciler struct {
	Store    ReferenceStore
	Metadata BuildMetadata
	Reader   IdentityReader
	Notifier Notifier
	Logger   *slog.Logger
}

// Restore removes need's project reference to removed and adds an assembly
// reference to absolutePath instead. If the store resolves the new reference
// to a different file, the HintPath of the Reference item whose identity
// matches the file at absolutePath is pointed back at absolutePath.
func (r Reconciler) Restore(need, removed *workspace.Unit, absolutePath string) (Outcome, error) {
	refs, err := r.Store.ListReferences(need)
	if err != nil {
		return 0, fmt.Errorf("listing references: %w", err)
	}

	for _, ref := range refs {
		if ref.Kind == msbuild.ProjectReference && platform.SamePath(ref.Target, removed.Path) {
			if err := r.Store.RemoveReference(need, ref); err != nil {
				return 0, fmt.Errorf("removing project reference to %s: %w", removed.Name, err)
			}
			break
		}
	}

	for _, ref := range refs {
		if ref.Kind == msbuild.AssemblyReference && ref.Path != "" && platform.EqualFoldPath(ref.Path, absolutePath) {
			return OutcomeUnchanged, nil
		}
	}

	if !platform.FileExists(absolutePath) {
		r.notifier().ShowMessage(fmt.Sprintf("Not able to add reference to file %s for the project %s", absolutePath, need.Name), SeverityError)
		logger(r.Logger).Debug("recorded artifact missing", slog.String("path", absolutePath))
		return OutcomeMissingFile, nil
	}

	added, err := r.Store.AddAssemblyReference(need, absolutePath)
	if err != nil {
		return 0, fmt.Errorf("adding reference to %s: %w", absolutePath, err)
	}
	if platform.EqualFoldPath(added.Path, absolutePath) {
		return OutcomeRestored, nil
	}

	want := r.Reader.ReadIdentity(absolutePath)
	items, err := r.Metadata.ReferenceItems(need)
	if err != nil {
		return 0, fmt.Errorf("reading build items: %w", err)
	}
	for _, item := range items {
		id, err := item.Identity()
		if err != nil {
			continue
		}
		if id.Matches(want) {
			if err := r.Metadata.SetHintPath(need, item, platform.ToRelative(absolutePath, need.Path)); err != nil {
				return 0, fmt.Errorf("repairing hint path of %s: %w", id.Name, err)
			}
			logger(r.Logger).Debug("hint path repaired",
				slog.String("unit", need.Name),
				slog.String("resolved", added.Path),
				slog.String("recorded", absolutePath))
			return OutcomeRepaired, nil
		}
	}
	return OutcomeRestored, nil
}

func (r Reconciler) notifier() Notifier {
	if r.Notifier == nil {
		return nopNotifier{}
	}
	return r.Notifier
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
