package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teranos/redpen/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show redpen version information",
	Long: `Display version, build time, commit hash, and platform information for the redpen binary.

With --require, exit non-zero unless the build version satisfies the given
semver constraint (e.g. --require ">= 1.2, < 2").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		require, _ := cmd.Flags().GetString("require")

		info := version.Get()

		if require != "" {
			ok, err := info.Satisfies(require)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("redpen %s does not satisfy %q", info.Version, require)
			}
		}

		if jsonOutput {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("error formatting JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		fmt.Fprintf(cmd.OutOrStdout(), "Platform: %s\n", info.Platform)
		fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
	VersionCmd.Flags().String("require", "", "Fail unless the version satisfies this semver constraint")
}
