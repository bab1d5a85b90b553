package am

// Config represents the redpen configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" json:"server" yaml:"server" toml:"server"`
	Storage StorageConfig `mapstructure:"storage" json:"storage" yaml:"storage" toml:"storage"`
	Sync    SyncConfig    `mapstructure:"sync" json:"sync" yaml:"sync" toml:"sync"`
	Publish PublishConfig `mapstructure:"publish" json:"publish" yaml:"publish" toml:"publish"`
	Log     LogConfig     `mapstructure:"log" json:"log" yaml:"log" toml:"log"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" json:"addr" yaml:"addr" toml:"addr"`                                             // Listen address (default ":8080")
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"` // CORS origins; "*" or "_" allows any
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`     // Request body limit (default 1 MiB)
}

// StorageConfig configures the annotation document store
type StorageConfig struct {
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir" toml:"dir"` // Root for pages/ and inbox/
}

// SyncConfig configures the content repository and the webhook that triggers it
type SyncConfig struct {
	RepoURL              string `mapstructure:"repo_url" json:"repo_url" yaml:"repo_url" toml:"repo_url"`
	Ref                  string `mapstructure:"ref" json:"ref" yaml:"ref" toml:"ref"`
	WorkDir              string `mapstructure:"work_dir" json:"work_dir" yaml:"work_dir" toml:"work_dir"` // Working copy, owned by repository sync
	Depth                int    `mapstructure:"depth" json:"depth" yaml:"depth" toml:"depth"`             // Clone depth; 0 = full history
	TimeoutSeconds       int    `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	WebhookSecret        string `mapstructure:"webhook_secret" json:"-" yaml:"-" toml:"-"`
	HookName             string `mapstructure:"hook_name" json:"hook_name" yaml:"hook_name" toml:"hook_name"` // Empty accepts any /.hooks/{name}
	WebhookRatePerMinute int    `mapstructure:"webhook_rate_per_minute" json:"webhook_rate_per_minute" yaml:"webhook_rate_per_minute" toml:"webhook_rate_per_minute"`
}

// PublishConfig configures staging and the public directory
type PublishConfig struct {
	PublicDir                 string            `mapstructure:"public_dir" json:"public_dir" yaml:"public_dir" toml:"public_dir"`
	StagingDir                string            `mapstructure:"staging_dir" json:"staging_dir" yaml:"staging_dir" toml:"staging_dir"`
	Strategy                  string            `mapstructure:"strategy" json:"strategy" yaml:"strategy" toml:"strategy"` // symlink | mirror
	KeepReleases              int               `mapstructure:"keep_releases" json:"keep_releases" yaml:"keep_releases" toml:"keep_releases"`
	APIBaseURL                string            `mapstructure:"api_base_url" json:"api_base_url" yaml:"api_base_url" toml:"api_base_url"`
	Inject                    map[string]string `mapstructure:"inject" json:"inject,omitempty" yaml:"inject,omitempty" toml:"inject,omitempty"` // Extra APP_CONFIG keys
	PostProcessCmd            string            `mapstructure:"post_process_cmd" json:"post_process_cmd" yaml:"post_process_cmd" toml:"post_process_cmd"`
	PostProcessTimeoutSeconds int               `mapstructure:"post_process_timeout_seconds" json:"post_process_timeout_seconds" yaml:"post_process_timeout_seconds" toml:"post_process_timeout_seconds"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level" toml:"level"`
	JSON  bool   `mapstructure:"json" json:"json" yaml:"json" toml:"json"`
}

// Publish strategies
const (
	StrategySymlink = "symlink"
	StrategyMirror  = "mirror"
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
