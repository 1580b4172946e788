package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/platform"
	"github.com/refswitch/refswitch/internal/state"
	"github.com/refswitch/refswitch/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	checkProjects bool
	checkState    bool
)

func init() {
	doctorCmd.Flags().BoolVar(&checkProjects, "check-projects", false, "Verify every project file can be loaded")
	doctorCmd.Flags().BoolVar(&checkState, "check-state", false, "Validate the state file and its recorded paths")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor <solution.sln>",
	Short: "Health check for a solution and its recorded references",
	Long: `Run diagnostic checks before converting or reverting: report projects a
pass would skip, validate the state file, and predict which recorded
references a revert could not restore.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sln, err := openSolution(args[0])
		if err != nil {
			return err
		}

		// If no specific flag, run all checks.
		all := !checkProjects && !checkState
		out := cmd.OutOrStdout()
		if all || checkProjects {
			runProjectsCheck(out, sln)
		}
		if all || checkState {
			return runStateCheck(out, sln, stateStore())
		}
		return nil
	},
}

func runProjectsCheck(w io.Writer, sln *workspace.Solution) {
	fmt.Fprintln(w, "Projects check:")

	store := msbuild.NewStore()
	for _, u := range sln.Units() {
		if u.Kind != workspace.KindProject {
			continue
		}
		ok, err := store.Editable(u)
		switch {
		case err != nil:
			fmt.Fprintf(w, "  [FAIL] %s: %v\n", u.UniqueName, err)
		case !ok:
			fmt.Fprintf(w, "  [SKIP] %s: not an MSBuild project file\n", u.UniqueName)
		default:
			name, _ := store.AssemblyName(u)
			if name == "" {
				fmt.Fprintf(w, "  [WARN] %s: output name cannot be determined\n", u.UniqueName)
				continue
			}
			fmt.Fprintf(w, "  [ OK ] %s (%s)\n", u.UniqueName, name)
		}
	}
}

func runStateCheck(w io.Writer, sln *workspace.Solution, store *state.Store) error {
	path := store.Path(sln.Path)
	fmt.Fprintf(w, "State check: %s\n", path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Fprintln(w, "  [INFO] No state file; nothing to revert")
		return nil
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return fmt.Errorf("reading state file: %w", err)
	}

	issues, err := state.Validate(data)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return fmt.Errorf("state file %s is not valid YAML: %w", path, err)
	}
	if len(issues) > 0 {
		fmt.Fprintf(w, "  [FAIL] %d validation issue(s):\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(w, "    - %s\n", issue)
		}
		return fmt.Errorf("state file %s has %d validation issue(s)", path, len(issues))
	}

	set, err := state.Decode(data)
	if errors.Is(err, state.ErrUnsupportedVersion) {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return err
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return fmt.Errorf("decoding state file: %w", err)
	}
	fmt.Fprintf(w, "  [ OK ] %d record(s)\n", set.Len())

	for _, r := range set.Records() {
		source := sln.Lookup(r.Source)
		switch {
		case source == nil:
			fmt.Fprintf(w, "  [WARN] %s -> %s: source project is no longer in the solution\n", r.Source, r.Referenced)
		case sln.Lookup(r.Referenced) == nil:
			fmt.Fprintf(w, "  [WARN] %s -> %s: referenced project is no longer in the solution\n", r.Source, r.Referenced)
		case r.KnownPath == "":
			fmt.Fprintf(w, "  [WARN] %s -> %s: no recorded path\n", r.Source, r.Referenced)
		default:
			abs := platform.ToAbsolute(r.KnownPath, source.Path)
			if platform.FileExists(abs) {
				fmt.Fprintf(w, "  [ OK ] %s -> %s\n", r.Source, abs)
			} else {
				fmt.Fprintf(w, "  [MISS] %s -> %s\n", r.Source, abs)
			}
		}
	}
	return nil
}
