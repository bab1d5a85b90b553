package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/teranos/redpen/am"
	"github.com/teranos/redpen/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, cfg *am.Config) {
	versionInfo := version.Get()

	pterm.DefaultHeader.WithFullWidth().Println("redpen")
	pterm.Println()

	rows := [][]string{
		{"Version", fmt.Sprintf("%s (commit %s)", versionInfo.Version, versionInfo.Short())},
		{"Built", versionInfo.BuildTime},
		{"Listen", cfg.Server.Addr},
		{"Storage", cfg.Storage.Dir},
	}
	if cfg.Sync.RepoURL != "" {
		rows = append(rows,
			[]string{"Repository", fmt.Sprintf("%s @ %s", cfg.Sync.RepoURL, cfg.Sync.Ref)},
			[]string{"Public", fmt.Sprintf("%s (%s)", cfg.Publish.PublicDir, cfg.Publish.Strategy)},
		)
	} else {
		rows = append(rows, []string{"Repository", "not configured (webhook disabled)"})
	}
	if verbosity > 0 {
		rows = append(rows, []string{"Verbosity", fmt.Sprintf("%d", verbosity)})
	}

	pterm.DefaultTable.WithData(rows).Render()
	pterm.Println()
	pterm.Info.Println("Press Ctrl+C to stop")
}
