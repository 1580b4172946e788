package cli

import (
	"fmt"

	"github.com/refswitch/refswitch/internal/config"
	"github.com/refswitch/refswitch/internal/switcher"
	"github.com/spf13/cobra"
)

var revertForce bool

var revertCmd = &cobra.Command{
	Use:   "revert <solution.sln>",
	Short: "Switch converted project references back to assembly references",
	Long: `Restore the assembly references recorded by 'convert'. References whose
recorded file no longer exists are reported and kept in the state file for a
later run, unless --force is given or revert.keep_unresolved is false.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevert,
}

func init() {
	revertCmd.Flags().BoolVar(&revertForce, "force", false, "Delete the state file even if some references could not be restored")
	rootCmd.AddCommand(revertCmd)
}

func runRevert(cmd *cobra.Command, args []string) error {
	sln, err := openSolution(args[0])
	if err != nil {
		return err
	}

	opts := switcher.RevertOptions{KeepUnresolved: config.KeepUnresolved() && !revertForce}
	res, err := newEngine(cmd).SwitchBackToAssemblyReferences(cmd.Context(), sln, opts)
	if res != nil {
		out := cmd.OutOrStdout()
		restored := 0
		for _, r := range res.Restored {
			fmt.Fprintf(out, "  %s -> %s (%s)\n", r.Source, r.KnownPath, r.Outcome)
			if r.Outcome != switcher.OutcomeMissingFile {
				restored++
			}
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(out, "  skipped %s -> %s: %s\n", s.Record.Source, s.Record.Referenced, s.Reason)
		}
		fmt.Fprintf(out, "Reverted %d reference(s).\n", restored)
	}
	if err != nil {
		return fmt.Errorf("switching back to assembly references: %w", err)
	}
	return nil
}
