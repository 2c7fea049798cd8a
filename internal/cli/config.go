package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/changeset/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect changeset configuration",
	Long: `Inspect changeset configuration.

Configuration is loaded with the following priority (highest to lowest):
  1. Environment variables (CHANGESET_*)
  2. Project config (.changeset/config.yml, or .changeset/config.json)
  3. User config (~/.config/changeset/config.yml)
  4. Built-in defaults`,
	Example: `  # Show the effective configuration
  changeset config show`,
	Args: noArgs,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, rootDir)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, root string) error {
	abs, cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# project config: %s\n", config.ProjectConfigPath(abs))
	_, err = out.Write(data)
	return err
}
