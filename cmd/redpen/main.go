package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/teranos/redpen/am"
	"github.com/teranos/redpen/cmd/redpen/commands"
	"github.com/teranos/redpen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "redpen",
	Short: "redpen - Annotation store and content publishing service",
	Long: `redpen - Annotation store and content publishing service.

redpen stores reviewer annotations for document pages and keeps a static
site in sync with a git repository: a signed webhook triggers a fetch of the
configured ref, and the new tree is staged and swapped into the public
directory.

Available commands:
  serve    - Start the HTTP server (annotations, webhook, inbox)
  publish  - Run one sync and publish cycle now
  mutate   - Apply config injection and post-processing to a directory
  am       - Show and validate configuration ("I am")
  version  - Show build information

Examples:
  redpen serve                    # Start the server
  redpen serve --watch ~/site     # Republish on local changes
  redpen publish                  # Sync and publish once
  redpen am show --format yaml    # Show configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Machine-readable commands keep stdout clean
		if cmd.Name() == "show" || cmd.Name() == "get" {
			return nil
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		return initLogger(verbosity)
	},
}

func initLogger(verbosity int) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	configured, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log.level %q: %w", cfg.Log.Level, err)
	}
	level := logger.VerbosityToLevel(verbosity, configured)
	if err := logger.Initialize(cfg.Log.JSON, level.String()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.PublishCmd)
	rootCmd.AddCommand(commands.MutateCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
