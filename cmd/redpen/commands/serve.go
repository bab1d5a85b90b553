package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/sitesync"
)

// ServeCmd starts the redpen HTTP server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the annotation API and publish webhook",
	Long: `Start the HTTP server exposing the annotation API, the publish webhook,
sync status, the payload inbox and health checks.

With --watch, changes in a local source directory trigger a sync and publish
cycle, for repositories that live on the same machine.`,
	RunE: runServe,
}

var (
	serveWatchDir    string
	serveInitialSync bool
)

func init() {
	ServeCmd.Flags().StringVar(&serveWatchDir, "watch", "", "Local source directory to watch for changes")
	ServeCmd.Flags().BoolVar(&serveInitialSync, "initial-sync", true, "Run one sync and publish cycle at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	srv, err := a.server()
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	printStartupBanner(verbosity, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.ComponentLogger("serve")

	if a.orchestrator != nil {
		if serveWatchDir != "" {
			watcher, err := sitesync.NewWatcher(serveWatchDir, a.orchestrator.Trigger, sitesync.DefaultDebounce, logger.ComponentLogger("sitesync.watch"))
			if err != nil {
				return err
			}
			watcher.Start()
			defer watcher.Stop()
			pterm.Info.Printfln("Watching %s for changes", serveWatchDir)
		}

		if serveInitialSync {
			go func() {
				res, err := a.orchestrator.Trigger(ctx, "startup")
				if err != nil {
					log.Warnw("Initial cycle failed", logger.FieldError, err)
					return
				}
				log.Infow("Initial cycle finished", "outcome", res.Outcome.String(), logger.FieldCommit, res.Commit)
			}()
		}
	} else if serveWatchDir != "" {
		pterm.Warning.Println("--watch ignored: sync.repo_url is not configured")
	}

	err = srv.ListenAndServe(ctx)
	if a.orchestrator != nil {
		a.orchestrator.Wait()
	}
	return err
}
