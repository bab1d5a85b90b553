package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance without user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "/data", cfg.Storage.Dir)
	assert.Equal(t, "main", cfg.Sync.Ref)
	assert.Equal(t, 1, cfg.Sync.Depth)
	assert.Zero(t, cfg.Sync.WebhookRatePerMinute)
	assert.Equal(t, StrategySymlink, cfg.Publish.Strategy)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.AllowsAnyOrigin())
	require.NoError(t, cfg.Validate())
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("GIT_REF", "published")
	t.Setenv("API_BASE_URL", "https://api.example.org")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	v := viper.New()
	BindEnvVars(v)
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Sync.WebhookSecret)
	assert.Equal(t, "published", cfg.Sync.Ref)
	assert.Equal(t, "https://api.example.org", cfg.Publish.APIBaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.AllowsAnyOrigin())
}

func TestLoad_UnderscoreOriginIsWildcard(t *testing.T) {
	cfg := ServerConfig{AllowedOrigins: []string{"_"}}
	assert.True(t, cfg.AllowsAnyOrigin())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	content := `
[sync]
repo_url = "https://github.com/example/site.git"
ref = "gh-pages"

[publish]
strategy = "mirror"
api_base_url = "https://api.example.org"

[publish.inject]
theme = "dark"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/example/site.git", cfg.Sync.RepoURL)
	assert.Equal(t, "gh-pages", cfg.Sync.Ref)
	assert.Equal(t, StrategyMirror, cfg.Publish.Strategy)
	assert.Equal(t, "dark", cfg.Publish.Inject["theme"])
	// Untouched keys keep defaults
	assert.Equal(t, 120, cfg.Sync.TimeoutSeconds)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := LoadWithViper(v)
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "zero depth is valid (full clone)", mutate: func(c *Config) { c.Sync.Depth = 0 }},
		{name: "negative depth is invalid", mutate: func(c *Config) { c.Sync.Depth = -1 }, wantErr: true},
		{name: "zero sync timeout is invalid", mutate: func(c *Config) { c.Sync.TimeoutSeconds = 0 }, wantErr: true},
		{name: "unknown strategy", mutate: func(c *Config) { c.Publish.Strategy = "rsync" }, wantErr: true},
		{name: "empty storage dir", mutate: func(c *Config) { c.Storage.Dir = "" }, wantErr: true},
		{name: "repo without ref", mutate: func(c *Config) {
			c.Sync.RepoURL = "https://example.org/site.git"
			c.Sync.Ref = ""
		}, wantErr: true},
		{name: "public dir equals working copy", mutate: func(c *Config) {
			c.Publish.PublicDir = "/srv/x"
			c.Sync.WorkDir = "/srv/x"
		}, wantErr: true},
		{name: "zero releases kept", mutate: func(c *Config) { c.Publish.KeepReleases = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeConfigFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[sync]\nref = \"published\"\n"), 0o644))
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[sync\nref = "), 0o644))

	v := viper.New()
	SetDefaults(v)

	require.NoError(t, mergeConfigFile(v, filepath.Join(dir, "missing.toml")))
	require.NoError(t, mergeConfigFile(v, good))

	err := mergeConfigFile(v, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	// The malformed file changed nothing
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, "published", cfg.Sync.Ref)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}
