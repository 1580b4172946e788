package cli

import (
	"encoding/json"
	"fmt"

	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/workspace"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list <solution.sln>",
	Short: "List the projects of a solution and their references",
	Long: `List every loadable project of the solution in the order a conversion pass
visits them, with its output assembly name and its references.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry is a project for display.
type listEntry struct {
	Name       string          `json:"name"`
	UniqueName string          `json:"uniqueName"`
	Assembly   string          `json:"assembly"`
	References []listReference `json:"references"`
}

type listReference struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	sln, err := openSolution(args[0])
	if err != nil {
		return err
	}

	store := msbuild.NewStore()
	var entries []listEntry
	for _, u := range workspace.ListUnits(sln, store.Editable) {
		entry := listEntry{Name: u.Name, UniqueName: u.UniqueName, References: []listReference{}}
		if entry.Assembly, err = store.AssemblyName(u); err != nil {
			return err
		}
		refs, err := store.ListReferences(u)
		if err != nil {
			return err
		}
		for _, r := range refs {
			lr := listReference{Kind: r.Kind.String(), Name: r.Name, Path: r.Path}
			if r.Kind == msbuild.ProjectReference {
				lr.Path = r.Target
			}
			entry.References = append(entry.References, lr)
		}
		entries = append(entries, entry)
	}

	out := cmd.OutOrStdout()
	if listJSON {
		if entries == nil {
			entries = []listEntry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling projects: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No loadable projects in the solution.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s (%s)\n", e.UniqueName, e.Assembly)
		for _, r := range e.References {
			if r.Path == "" {
				fmt.Fprintf(out, "  %-8s %s\n", r.Kind, r.Name)
				continue
			}
			fmt.Fprintf(out, "  %-8s %s  %s\n", r.Kind, r.Name, r.Path)
		}
	}
	return nil
}
