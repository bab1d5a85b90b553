package am

import (
	"strings"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Storage defaults
	v.SetDefault("storage.dir", "/data")

	// Sync defaults
	v.SetDefault("sync.ref", "main")
	v.SetDefault("sync.work_dir", "/srv/repo")
	v.SetDefault("sync.depth", 1)               // Shallow clone
	v.SetDefault("sync.timeout_seconds", 120)   // Bound on clone/fetch
	v.SetDefault("sync.webhook_rate_per_minute", 0)

	// Publish defaults
	v.SetDefault("publish.public_dir", "/srv/public")
	v.SetDefault("publish.staging_dir", "/srv/staging")
	v.SetDefault("publish.strategy", StrategySymlink)
	v.SetDefault("publish.keep_releases", 3)
	v.SetDefault("publish.post_process_timeout_seconds", 60)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// BindEnvVars binds configuration keys to the environment variable names
// used by existing deployments, alongside the REDPEN_* automatic binding.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("sync.webhook_secret", "REDPEN_SYNC_WEBHOOK_SECRET", "WEBHOOK_SECRET")
	v.BindEnv("sync.repo_url", "REDPEN_SYNC_REPO_URL", "REPO_URL")
	v.BindEnv("sync.ref", "REDPEN_SYNC_REF", "GIT_REF")
	v.BindEnv("sync.work_dir", "REDPEN_SYNC_WORK_DIR", "REPO_DIR")
	v.BindEnv("publish.public_dir", "REDPEN_PUBLISH_PUBLIC_DIR", "PUBLIC_DIR")
	v.BindEnv("publish.staging_dir", "REDPEN_PUBLISH_STAGING_DIR", "STAGING_DIR")
	v.BindEnv("publish.api_base_url", "REDPEN_PUBLISH_API_BASE_URL", "API_BASE_URL")
	v.BindEnv("storage.dir", "REDPEN_STORAGE_DIR", "STORAGE_DIR")
	v.BindEnv("log.level", "REDPEN_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("server.allowed_origins", "REDPEN_SERVER_ALLOWED_ORIGINS", "CORS_ALLOW_ORIGINS")
}

// AllowsAnyOrigin reports whether CORS should echo any Origin.
// "_" is accepted as a wildcard for compatibility with older deployments.
func (c *ServerConfig) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || o == "_" {
			return true
		}
	}
	return len(c.AllowedOrigins) == 0
}

// parseOrigins splits a comma separated origin list from the environment.
func parseOrigins(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
