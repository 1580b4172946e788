package switcher

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/refswitch/refswitch/internal/platform"
	"github.com/refswitch/refswitch/internal/state"
	"github.com/refswitch/refswitch/internal/workspace"
)

// Edge is one converted or reverted dependency.
type Edge struct {
	Source    string
	Target    string
	KnownPath string
}

// Restoration is a reverted edge and what happened to it.
type Restoration struct {
	Edge
	Outcome Outcome
}

// Skip is a record a revert pass did not act on.
type Skip struct {
	Record state.Record
	Reason string
}

// Result summarises a pass.
type Result struct {
	PassID    string
	Converted []Edge
	Restored  []Restoration
	Skipped   []Skip

	// Kept counts records written back because they could not be restored.
	Kept int
}

// RevertOptions tunes SwitchBackToAssemblyReferences.
type RevertOptions struct {
	// KeepUnresolved writes records whose artifact was missing, or whose
	// projects could not be loaded, back to the state file instead of
	// deleting it with the rest.
	KeepUnresolved bool
}

// Engine runs conversion passes over a solution.
type Engine struct {
	host     Host
	states   *state.Store
	notifier Notifier
	logger   *slog.Logger
}

// NewEngine returns an Engine. A nil notifier discards messages and a nil
// logger uses slog.Default.
func NewEngine(host Host, states *state.Store, notifier Notifier, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{host: host, states: states, notifier: notifier, logger: logger}
}

func newPassID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func checkSaved(sln *workspace.Solution) error {
	if sln == nil || sln.Path == "" {
		return workspace.ErrUnsavedWorkspace
	}
	if !platform.FileExists(sln.Path) {
		return fmt.Errorf("%w: %s does not exist", workspace.ErrUnsavedWorkspace, sln.Path)
	}
	return nil
}

// loadState reads the change set; a corrupt artifact is reported and treated
// as empty.
func (e *Engine) loadState(sln *workspace.Solution) (*state.ChangeSet, error) {
	set, err := e.states.Load(sln.Path)
	if errors.Is(err, state.ErrCorrupt) {
		e.notifier.ShowMessage(err.Error(), SeverityWarning)
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading reference state: %w", err)
	}
	return set, nil
}

// ToProjectReferences converts, for every unit in collector order, the
// assembly references other units hold to its output into project references.
// The change set is saved before the unit's references are touched. On error
// the pass stops; edits and records already written stay in place.
func (e *Engine) ToProjectReferences(ctx context.Context, sln *workspace.Solution) (*Result, error) {
	if err := checkSaved(sln); err != nil {
		return nil, err
	}

	res := &Result{PassID: newPassID()}
	log := e.logger.With(slog.String("pass", res.PassID), slog.String("op", "convert"))

	set, err := e.loadState(sln)
	if err != nil {
		return nil, err
	}

	units := workspace.Collector{Logger: log}.List(sln, e.host.Editable)
	matcher := Matcher{Store: e.host, Logger: log}
	log.Debug("collected units", slog.Int("count", len(units)))

	for i, target := range units {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e.notifier.ReportProgress(fmt.Sprintf("Switch project %s", target.Name), i+1, len(units))

		matches, err := matcher.FindReferencesToConvert(target, units)
		if err != nil {
			return res, &SwitchError{Unit: target.Name, Err: err}
		}
		if len(matches) == 0 {
			continue
		}

		for _, m := range matches {
			set.AddOrUpdate(m.Source.UniqueName, target.UniqueName, platform.ToRelative(m.Reference.Path, m.Source.Path))
		}
		if err := e.states.Save(sln.Path, set); err != nil {
			return res, &SwitchError{Unit: target.Name, Err: fmt.Errorf("saving reference state: %w", err)}
		}

		for _, m := range matches {
			if err := e.host.RemoveReference(m.Source, m.Reference); err != nil {
				return res, &SwitchError{Unit: m.Source.Name, Reference: m.Reference.Name, Err: err}
			}
			if err := e.host.AddProjectReference(m.Source, target); err != nil {
				return res, &SwitchError{Unit: m.Source.Name, Reference: m.Reference.Name, Err: err}
			}
			rec, _ := set.Get(m.Source.UniqueName, target.UniqueName)
			res.Converted = append(res.Converted, Edge{Source: m.Source.UniqueName, Target: target.UniqueName, KnownPath: rec.KnownPath})
			log.Info("converted reference",
				slog.String("source", m.Source.Name),
				slog.String("target", target.Name),
				slog.String("path", rec.KnownPath))
		}
	}
	return res, nil
}

// SwitchBackToAssemblyReferences restores the assembly references recorded
// by earlier conversions. Records whose source or referenced unit is no longer
// part of the solution, or that carry no path, are skipped and dropped.
// Records whose units are in the solution but cannot be loaded are skipped
// with a warning and count as unresolved. The state file is deleted at the
// end unless opts.KeepUnresolved is set and some record is unresolved, in
// which case only those records are written back.
func (e *Engine) SwitchBackToAssemblyReferences(ctx context.Context, sln *workspace.Solution, opts RevertOptions) (*Result, error) {
	if err := checkSaved(sln); err != nil {
		return nil, err
	}

	res := &Result{PassID: newPassID()}
	log := e.logger.With(slog.String("pass", res.PassID), slog.String("op", "revert"))

	set, err := e.loadState(sln)
	if err != nil {
		return nil, err
	}

	units := workspace.Collector{Logger: log}.List(sln, e.host.Editable)
	byName := make(map[string]*workspace.Unit, len(units))
	for _, u := range units {
		byName[u.UniqueName] = u
	}

	rec := Reconciler{Store: e.host, Metadata: e.host, Reader: e.host, Notifier: e.notifier, Logger: log}
	unresolved := state.NewChangeSet()
	seen := make(map[state.Record]bool, set.Len())

	skip := func(r state.Record, reason string) {
		res.Skipped = append(res.Skipped, Skip{Record: r, Reason: reason})
		log.Debug("skipped record",
			slog.String("source", r.Source),
			slog.String("target", r.Referenced),
			slog.String("reason", reason))
	}
	keep := func(r state.Record, unit string) {
		skip(r, "project could not be loaded")
		unresolved.AddOrUpdate(r.Source, r.Referenced, r.KnownPath)
		e.notifier.ShowMessage(fmt.Sprintf("Not able to switch back the reference from %s to %s: project %s could not be loaded", r.Source, r.Referenced, unit), SeverityWarning)
	}

	for i, target := range units {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e.notifier.ReportProgress(fmt.Sprintf("Switch back all references to project %s", target.Name), i+1, len(units))

		for _, r := range set.RecordsReferencing(target.UniqueName) {
			seen[r] = true
			source, ok := byName[r.Source]
			if !ok {
				if sln.Lookup(r.Source) == nil {
					skip(r, "source project not in solution")
				} else {
					keep(r, r.Source)
				}
				continue
			}
			if r.KnownPath == "" {
				skip(r, "no recorded path")
				continue
			}

			path := platform.ToAbsolute(r.KnownPath, source.Path)
			outcome, err := rec.Restore(source, target, path)
			if err != nil {
				return res, &SwitchError{Unit: source.Name, Reference: target.Name, Err: err}
			}
			if outcome == OutcomeMissingFile {
				unresolved.AddOrUpdate(r.Source, r.Referenced, r.KnownPath)
			}
			res.Restored = append(res.Restored, Restoration{
				Edge:    Edge{Source: r.Source, Target: r.Referenced, KnownPath: r.KnownPath},
				Outcome: outcome,
			})
			log.Info("reverted reference",
				slog.String("source", source.Name),
				slog.String("target", target.Name),
				slog.String("outcome", outcome.String()))
		}
	}

	// Records whose referenced unit was not collected.
	for _, r := range set.Records() {
		if seen[r] {
			continue
		}
		if sln.Lookup(r.Referenced) == nil {
			skip(r, "referenced project not in solution")
			continue
		}
		keep(r, r.Referenced)
	}

	if opts.KeepUnresolved && unresolved.Len() > 0 {
		if err := e.states.Save(sln.Path, unresolved); err != nil {
			return res, fmt.Errorf("saving unresolved references: %w", err)
		}
		res.Kept = unresolved.Len()
		e.notifier.ShowMessage(fmt.Sprintf("%d reference(s) could not be restored and were kept in %s", res.Kept, e.states.Path(sln.Path)), SeverityWarning)
		return res, nil
	}
	if err := e.states.Delete(sln.Path); err != nil {
		return res, err
	}
	return res, nil
}
