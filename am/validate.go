package am

import "github.com/teranos/redpen/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Storage.Dir == "" {
		return errors.New("storage.dir cannot be empty")
	}

	if c.Server.MaxBodyBytes < 0 {
		return errors.Newf("server.max_body_bytes must be >= 0, got %d", c.Server.MaxBodyBytes)
	}

	// Sync: zero depth means full history, negative is invalid
	if c.Sync.Depth < 0 {
		return errors.Newf("sync.depth must be >= 0, got %d", c.Sync.Depth)
	}
	if c.Sync.TimeoutSeconds <= 0 {
		return errors.Newf("sync.timeout_seconds must be > 0, got %d", c.Sync.TimeoutSeconds)
	}
	if c.Sync.WebhookRatePerMinute < 0 {
		return errors.Newf("sync.webhook_rate_per_minute must be >= 0, got %d", c.Sync.WebhookRatePerMinute)
	}
	if c.Sync.RepoURL != "" {
		if c.Sync.Ref == "" {
			return errors.New("sync.ref cannot be empty when sync.repo_url is set")
		}
		if c.Sync.WorkDir == "" {
			return errors.New("sync.work_dir cannot be empty when sync.repo_url is set")
		}
	}

	switch c.Publish.Strategy {
	case StrategySymlink, StrategyMirror:
	default:
		return errors.WithHint(
			errors.Newf("publish.strategy %q is not supported", c.Publish.Strategy),
			"use \"symlink\" or \"mirror\"")
	}
	if c.Publish.KeepReleases < 1 {
		return errors.Newf("publish.keep_releases must be >= 1, got %d", c.Publish.KeepReleases)
	}
	if c.Publish.PostProcessTimeoutSeconds < 0 {
		return errors.Newf("publish.post_process_timeout_seconds must be >= 0, got %d", c.Publish.PostProcessTimeoutSeconds)
	}
	if c.Publish.PublicDir != "" && c.Publish.PublicDir == c.Sync.WorkDir {
		return errors.New("publish.public_dir must differ from sync.work_dir")
	}

	return nil
}
