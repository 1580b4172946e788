package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/refswitch/refswitch/internal/state"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <solution.sln>",
	Short: "Show the references recorded for a solution",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	sln, err := openSolution(args[0])
	if err != nil {
		return err
	}

	store := stateStore()
	set, err := store.Read(sln.Path)
	if errors.Is(err, state.ErrCorrupt) {
		return fmt.Errorf("%w (run 'doctor --check-state' for details)", err)
	}
	if err != nil {
		return fmt.Errorf("loading reference state: %w", err)
	}
	records := set.Records()
	out := cmd.OutOrStdout()

	if statusJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling records: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No converted references recorded.")
		return nil
	}

	fmt.Fprintf(out, "State file: %s\n\n", store.Path(sln.Path))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tREFERENCED\tKNOWN PATH")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Source, r.Referenced, r.KnownPath)
	}
	return w.Flush()
}
