package commands

import (
	"time"

	"github.com/teranos/redpen/am"
	"github.com/teranos/redpen/annotation"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/gitsync"
	"github.com/teranos/redpen/inbox"
	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/publish"
	"github.com/teranos/redpen/server"
	"github.com/teranos/redpen/sitesync"
)

// app wires the components from one loaded configuration.
type app struct {
	cfg          *am.Config
	annotations  *annotation.Store
	inbox        *inbox.Inbox
	publisher    *publish.Publisher
	orchestrator *sitesync.Orchestrator // nil without sync.repo_url
}

func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func newApp(cfg *am.Config) (*app, error) {
	docs, err := annotation.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		annotations: annotation.NewStore(docs, logger.ComponentLogger("annotation")),
		inbox:       inbox.New(cfg.Storage.Dir, logger.ComponentLogger("inbox")),
	}

	a.publisher, err = publish.New(publish.OptionsFromConfig(cfg.Publish), logger.ComponentLogger("publish"))
	if err != nil {
		return nil, err
	}

	if cfg.Sync.RepoURL != "" {
		timeout := time.Duration(cfg.Sync.TimeoutSeconds) * time.Second
		syncer := gitsync.NewSyncer(cfg.Sync.WorkDir, cfg.Sync.Depth, timeout, logger.ComponentLogger("gitsync"))
		a.orchestrator = sitesync.New(sitesync.Config{
			RepoURL:    gitsync.NormalizeRepoURL(cfg.Sync.RepoURL),
			Ref:        cfg.Sync.Ref,
			PublicDir:  cfg.Publish.PublicDir,
			Injections: publish.InjectionsFromConfig(cfg.Publish),
			// Publishing shares the cycle budget with the fetch
			Timeout: timeout + time.Duration(cfg.Publish.PostProcessTimeoutSeconds)*time.Second,
		}, syncer, a.publisher, logger.ComponentLogger("sitesync"))
	}
	return a, nil
}

func (a *app) server() (*server.Server, error) {
	deps := server.Deps{
		Annotations: a.annotations,
		Inbox:       a.inbox,
	}
	// A nil *Orchestrator must not become a non-nil interface
	if a.orchestrator != nil {
		deps.Sync = a.orchestrator
	}
	return server.New(*a.cfg, deps, logger.ComponentLogger("server"))
}
