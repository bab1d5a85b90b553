package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/redpen/am"
	"gopkg.in/yaml.v3"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage redpen configuration",
	Long: `am: Manage redpen configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (REDPEN_* prefix, plus REPO_URL, GIT_REF,
   WEBHOOK_SECRET, PUBLIC_DIR, STAGING_DIR, API_BASE_URL, STORAGE_DIR,
   LOG_LEVEL, CORS_ALLOW_ORIGINS)
2. Project config (./am.toml, searched upwards)
3. User config (~/.redpen/am.toml)
4. System config (/etc/redpen/am.toml)
5. Default values

Examples:
  redpen am show                  # Show current configuration
  redpen am show --format json    # Show configuration in JSON format
  redpen am get sync.ref          # Get specific config value
  redpen am validate              # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current redpen configuration from all sources. The webhook secret is never shown.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., sync.ref, publish.strategy)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which configuration files are checked",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := renderConfig(cfg, configFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// renderConfig marshals cfg in the requested format. Secrets carry "-" tags
// in every format.
func renderConfig(cfg *am.Config, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		return string(data) + "\n", nil

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		return "# redpen configuration\n" + string(data), nil

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		return "# redpen configuration\n" + string(data), nil

	default:
		return "", fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if key == "sync.webhook_secret" {
		return fmt.Errorf("configuration key %q is secret", key)
	}

	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Sync.RepoURL != "" && cfg.Sync.WebhookSecret == "" {
		pterm.Warning.Println("sync.webhook_secret is empty: every webhook will be rejected")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration files (later overrides earlier, environment overrides all):")
	for _, path := range am.ConfigPaths() {
		state := "missing"
		if _, err := os.Stat(path); err == nil {
			state = "loaded"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s\n", state, path)
	}
	return nil
}
