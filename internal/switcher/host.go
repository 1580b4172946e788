package switcher

import (
	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/workspace"
)

// ReferenceStore reads and edits the references of a unit.
type ReferenceStore interface {
	AssemblyName(u *workspace.Unit) (string, error)
	ListReferences(u *workspace.Unit) ([]msbuild.Reference, error)
	AddProjectReference(u, target *workspace.Unit) error
	AddAssemblyReference(u *workspace.Unit, path string) (msbuild.Reference, error)
	RemoveReference(u *workspace.Unit, ref msbuild.Reference) error
}

// BuildMetadata edits raw build items below the reference store.
type BuildMetadata interface {
	ReferenceItems(u *workspace.Unit) ([]msbuild.Item, error)
	SetHintPath(u *workspace.Unit, item msbuild.Item, hintPath string) error
}

// IdentityReader reads the identity of an assembly file.
type IdentityReader interface {
	ReadIdentity(path string) msbuild.Identity
}

// Host is everything the engine needs from the project system.
// *msbuild.Store implements it.
type Host interface {
	ReferenceStore
	BuildMetadata
	IdentityReader

	// Editable is the collector predicate selecting the units a pass visits.
	Editable(u *workspace.Unit) (bool, error)
}

var _ Host = (*msbuild.Store)(nil)

// Severity classifies user notifications.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives user-facing messages and progress. Calls must not block.
type Notifier interface {
	ShowMessage(text string, severity Severity)
	ReportProgress(text string, current, total int)
}

type nopNotifier struct{}

func (nopNotifier) ShowMessage(string, Severity) {}
func (nopNotifier) ReportProgress(string, int, int) {}
