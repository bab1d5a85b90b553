// Package publish turns a working copy into the served static site.
//
// A publish copies the working copy into a staging tree, writes runtime
// configuration into it, runs best-effort post-processing and then makes the
// staged tree live. Only that last step touches the public path.
//
// Two strategies make a tree live:
//
//   - symlink: every publish builds a new release directory and the public
//     path is a symlink swapped atomically to it. Readers never observe a mix
//     of two releases.
//   - mirror: the staged tree is mirrored into the public directory in place,
//     one atomic file replacement at a time, then extraneous entries are
//     removed.
package publish

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teranos/redpen/am"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
	"go.uber.org/zap"
)

const mirrorStagingDir = "current"

// Options configures a Publisher.
type Options struct {
	StagingDir         string
	Strategy           string
	KeepReleases       int
	PostProcessCmd     string
	PostProcessTimeout time.Duration
}

// OptionsFromConfig maps the publish section of the configuration.
func OptionsFromConfig(cfg am.PublishConfig) Options {
	return Options{
		StagingDir:         cfg.StagingDir,
		Strategy:           cfg.Strategy,
		KeepReleases:       cfg.KeepReleases,
		PostProcessCmd:     cfg.PostProcessCmd,
		PostProcessTimeout: time.Duration(cfg.PostProcessTimeoutSeconds) * time.Second,
	}
}

// InjectionsFromConfig extracts the values injected into the site.
func InjectionsFromConfig(cfg am.PublishConfig) Injections {
	return Injections{APIBaseURL: cfg.APIBaseURL, Extra: cfg.Inject}
}

// Publisher owns the staging area and the public path.
type Publisher struct {
	opts   Options
	logger *zap.SugaredLogger

	mu sync.Mutex
}

// MutateReport describes what Mutate changed in a staged tree.
type MutateReport struct {
	ConfigWritten    bool
	HTMLInjected     int
	BootstrapPatched bool
	// Degraded holds non-fatal post-processing failures
	Degraded []string
}

// New creates a Publisher.
func New(opts Options, log *zap.SugaredLogger) (*Publisher, error) {
	if opts.StagingDir == "" {
		return nil, errors.Validationf("staging directory is required")
	}
	if opts.Strategy == "" {
		opts.Strategy = am.StrategySymlink
	}
	if opts.Strategy != am.StrategySymlink && opts.Strategy != am.StrategyMirror {
		return nil, errors.Validationf("unknown publish strategy %q", opts.Strategy)
	}
	if opts.KeepReleases < 1 {
		opts.KeepReleases = 1
	}
	if log == nil {
		log = logger.ComponentLogger("publish")
	}
	return &Publisher{opts: opts, logger: log}, nil
}

// Strategy returns the configured strategy name.
func (p *Publisher) Strategy() string {
	return p.opts.Strategy
}

// Publish stages workingCopy, injects configuration, post-processes and makes
// the result live at publicPath. On error publicPath is left as it was, and
// the error is marked errors.ErrPublish.
func (p *Publisher) Publish(ctx context.Context, workingCopy, publicPath string, inj Injections) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	if info, err := os.Stat(workingCopy); err != nil || !info.IsDir() {
		return errors.WrapPublish(errors.Newf("working copy %s is not a directory", workingCopy), "publish")
	}

	var err error
	switch p.opts.Strategy {
	case am.StrategyMirror:
		err = p.publishMirror(ctx, workingCopy, publicPath, inj)
	default:
		err = p.publishRelease(ctx, workingCopy, publicPath, inj)
	}
	if err != nil {
		p.logger.Errorw("Publish failed", logger.FieldPath, publicPath, logger.FieldError, err)
		return errors.WrapPublish(err, "publish failed")
	}

	p.logger.Infow("Site published",
		logger.FieldPath, publicPath,
		"strategy", p.opts.Strategy,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Publisher) publishRelease(ctx context.Context, workingCopy, publicPath string, inj Injections) error {
	release, err := newReleaseDir(p.opts.StagingDir)
	if err != nil {
		return errors.Wrap(err, "failed to create release directory")
	}
	live := false
	defer func() {
		if !live {
			os.RemoveAll(release)
		}
	}()

	count, err := copyTree(workingCopy, release)
	if err != nil {
		return err
	}
	if _, err := p.mutate(ctx, release, inj); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "publish cancelled before swap")
	}

	if err := swapSymlink(p.opts.StagingDir, release, publicPath); err != nil {
		return errors.Wrap(err, "failed to swap public symlink")
	}
	live = true

	p.logger.Infow("Release live",
		logger.FieldRelease, filepath.Base(release),
		logger.FieldCount, count,
	)

	removed, err := pruneReleases(p.opts.StagingDir, currentRelease(publicPath), p.opts.KeepReleases)
	if err != nil {
		p.logger.Warnw("Failed to prune old releases", logger.FieldError, err)
	} else if len(removed) > 0 {
		p.logger.Debugw("Pruned old releases", "releases", removed)
	}
	return nil
}

func (p *Publisher) publishMirror(ctx context.Context, workingCopy, publicPath string, inj Injections) error {
	staging := filepath.Join(p.opts.StagingDir, mirrorStagingDir)
	if err := os.RemoveAll(staging); err != nil {
		return errors.Wrap(err, "failed to clear staging directory")
	}

	count, err := copyTree(workingCopy, staging)
	if err != nil {
		return err
	}
	if _, err := p.mutate(ctx, staging, inj); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "publish cancelled before mirror")
	}

	// Past this point the mirror runs to completion or failure
	if err := mirrorInto(staging, publicPath); err != nil {
		return err
	}
	p.logger.Infow("Public directory mirrored", logger.FieldCount, count)
	return nil
}

// Mutate applies configuration injection and post-processing to an already
// staged directory in place.
func (p *Publisher) Mutate(ctx context.Context, dir string, inj Injections) (*MutateReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errors.WrapPublish(errors.Newf("%s is not a directory", dir), "mutate")
	}
	report, err := p.mutate(ctx, dir, inj)
	if err != nil {
		return nil, errors.WrapPublish(err, "mutate failed")
	}
	return report, nil
}

// mutate writes app-config.js (fatal on failure) and then runs the
// post-processing steps, each of which only degrades the result.
func (p *Publisher) mutate(ctx context.Context, dir string, inj Injections) (*MutateReport, error) {
	report := &MutateReport{}

	written, err := writeAppConfig(dir, inj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write app config")
	}
	report.ConfigWritten = written

	degrade := func(step string, err error) {
		report.Degraded = append(report.Degraded, step+": "+err.Error())
		p.logger.Warnw("Post-processing degraded", "step", step, logger.FieldError, err)
	}

	// The script tag is only useful when there is a config file to load
	if written || fileExists(filepath.Join(dir, appConfigFile)) {
		if n, err := injectConfigScript(dir); err != nil {
			degrade("inject-script", err)
		} else {
			report.HTMLInjected = n
		}
	}

	if patched, err := patchBootstrap(dir); err != nil {
		degrade("patch-bootstrap", err)
	} else {
		report.BootstrapPatched = patched
	}

	if p.opts.PostProcessCmd != "" {
		if err := runPostProcess(ctx, p.opts.PostProcessCmd, dir, p.opts.PostProcessTimeout, inj, p.logger); err != nil {
			degrade("post-process-command", err)
		}
	}

	p.logger.Debugw("Staging mutated",
		"config_written", report.ConfigWritten,
		"html_injected", report.HTMLInjected,
		"bootstrap_patched", report.BootstrapPatched,
		"degraded", len(report.Degraded),
	)
	return report, nil
}
