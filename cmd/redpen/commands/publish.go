package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/redpen/errors"
)

// PublishCmd runs one sync and publish cycle in the foreground
var PublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Fetch the configured ref and publish it now",
	Long: `Run a single sync and publish cycle: fetch sync.repo_url at sync.ref into the
working copy, stage it with injected configuration, then swap it into
publish.public_dir.`,
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Sync.RepoURL == "" {
		return errors.WithHint(
			errors.New("sync.repo_url is not configured"),
			"set REPO_URL or sync.repo_url in am.toml")
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spinner, _ := pterm.DefaultSpinner.Start("Syncing " + cfg.Sync.RepoURL + " @ " + cfg.Sync.Ref)
	res, err := a.orchestrator.Trigger(ctx, "cli")
	if err != nil {
		if spinner != nil {
			spinner.Fail("Publish failed")
		}
		return err
	}
	if spinner != nil {
		spinner.Success("Published commit " + res.Commit)
	}

	st := a.orchestrator.Status()
	pterm.Info.Printfln("Public directory: %s (%s)", cfg.Publish.PublicDir, cfg.Publish.Strategy)
	pterm.Info.Printfln("Cycles: %d, failures: %d", st.Cycles, st.Failures)
	return nil
}
