package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .changeset directory and a default config",
	Long: `Create .changeset/ in the workspace root with a README explaining the
changeset format and a fully commented config.yml.

Existing files are left untouched unless --force is given.`,
	Example: `  changeset init
  changeset init --force`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd, rootDir, initForce)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config and README")
	rootCmd.AddCommand(initCmd)
}

const changesetReadme = `# Changesets

This directory holds pending changesets: one Markdown file per change, each
declaring which packages it releases and how.

    ---
    "core": minor
    "cli": patch
    category: added
    ---

    Add streaming API.

Create one with ` + "`changeset add`" + `. Run ` + "`changeset status`" + ` to see the release
the pending changesets produce and ` + "`changeset release`" + ` to perform it.
`

func runInit(cmd *cobra.Command, root string, force bool) error {
	dir := filepath.Join(root, changeset.DefaultDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	files := []struct {
		path    string
		content string
	}{
		{config.ProjectConfigPath(root), config.GetDefaultConfigTemplate()},
		{filepath.Join(dir, "README.md"), changesetReadme},
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !force {
			fmt.Fprintf(out, "  %s already exists (use --force to overwrite)\n", f.path)
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
		fmt.Fprintf(out, "✓ Created %s\n", f.path)
	}
	return nil
}
