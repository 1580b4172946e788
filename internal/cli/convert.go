package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <solution.sln>",
	Short: "Replace assembly references between projects with project references",
	Long: `Find every assembly reference that points at the output of another project
in the solution and replace it with a project reference. The original paths are
recorded in a state file next to the solution so 'revert' can restore them.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	sln, err := openSolution(args[0])
	if err != nil {
		return err
	}

	res, err := newEngine(cmd).ToProjectReferences(cmd.Context(), sln)
	if res != nil {
		out := cmd.OutOrStdout()
		for _, e := range res.Converted {
			fmt.Fprintf(out, "  %s -> %s\n", e.Source, e.Target)
		}
		fmt.Fprintf(out, "Converted %d reference(s).\n", len(res.Converted))
	}
	if err != nil {
		return fmt.Errorf("switching to project references: %w", err)
	}
	return nil
}
