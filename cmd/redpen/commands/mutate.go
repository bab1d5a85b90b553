package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/publish"
)

// MutateCmd applies injection and post-processing without syncing or swapping
var MutateCmd = &cobra.Command{
	Use:   "mutate <dir>",
	Short: "Inject runtime configuration into an existing site directory",
	Long: `Write app-config.js, add the config script tag to HTML pages, patch the
editor bootstrap and run publish.post_process_cmd in <dir>. Nothing is
fetched and nothing is swapped; use it to prepare a tree by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: runMutate,
}

func runMutate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pub, err := publish.New(publish.OptionsFromConfig(cfg.Publish), logger.ComponentLogger("publish"))
	if err != nil {
		return err
	}

	report, err := pub.Mutate(context.Background(), args[0], publish.InjectionsFromConfig(cfg.Publish))
	if err != nil {
		return err
	}

	pterm.DefaultSection.Println("Mutate " + args[0])
	pterm.Printfln("  app-config.js written: %t", report.ConfigWritten)
	pterm.Printfln("  HTML pages injected:   %d", report.HTMLInjected)
	pterm.Printfln("  Bootstrap patched:     %t", report.BootstrapPatched)
	for _, d := range report.Degraded {
		pterm.Warning.Println(d)
	}
	if len(report.Degraded) == 0 {
		pterm.Success.Println("Done")
	}
	return nil
}
