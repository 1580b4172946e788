package cli

import (
	"fmt"
	"log/slog"

	"github.com/refswitch/refswitch/internal/config"
	"github.com/refswitch/refswitch/internal/msbuild"
	"github.com/refswitch/refswitch/internal/state"
	"github.com/refswitch/refswitch/internal/switcher"
	"github.com/refswitch/refswitch/internal/workspace"
	"github.com/spf13/cobra"
)

func openSolution(path string) (*workspace.Solution, error) {
	sln, err := workspace.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening solution: %w", err)
	}
	return sln, nil
}

func stateStore() *state.Store {
	return state.NewStore(config.StateSuffix())
}

func newEngine(cmd *cobra.Command) *switcher.Engine {
	notifier := consoleNotifier{w: cmd.ErrOrStderr(), quiet: quiet}
	return switcher.NewEngine(msbuild.NewStore(), stateStore(), notifier, slog.Default())
}
