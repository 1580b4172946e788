package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/refswitch/refswitch/internal/branding"
	"github.com/refswitch/refswitch/internal/config"
	"github.com/refswitch/refswitch/internal/logging"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` replaces assembly references between the projects of a Visual Studio
solution with project references, and switches them back later using the
paths recorded next to the solution file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()

		level := config.LogLevel()
		if verbose {
			level = "debug"
		}
		logger, err := logging.New(cmd.ErrOrStderr(), level, config.LogFormat())
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details to stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not report progress")
}

// Execute runs the root command with build info injected via ldflags.
// Interrupts cancel the running pass at the next project boundary.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
