package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/changeset/internal/changeset"
	clierrors "github.com/ariel-frischer/changeset/internal/errors"
)

type addOptions struct {
	packages []string
	bump     string
	category string
	message  string
	// allowUnknown skips the workspace package check.
	allowUnknown bool
}

var addOpts addOptions

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new changeset",
	Long: `Write a new changeset file to .changeset/ releasing the given packages.

Each --package is either a package name, released with --bump, or
name:severity to give that package its own severity. The summary comes
from --message, or from stdin when --message is "-".`,
	Example: `  # Patch release of one package
  changeset add --package core -m "Fix rounding in totals"

  # Several packages with different severities
  changeset add --package core:major --package cli:minor -m "Rename Config to Settings"

  # Keep a Changelog category and a summary from stdin
  git log -1 --format=%B | changeset add -p core --category fixed -m -`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(cmd, rootDir, addOpts)
	},
}

func init() {
	addCmd.Flags().StringArrayVarP(&addOpts.packages, "package", "p", nil, "Package to release, optionally name:severity (repeatable)")
	addCmd.Flags().StringVarP(&addOpts.bump, "bump", "b", "patch", "Default severity: patch, minor or major")
	addCmd.Flags().StringVar(&addOpts.category, "category", "", "Change category: added, changed, deprecated, removed, fixed, security")
	addCmd.Flags().StringVarP(&addOpts.message, "message", "m", "", "Summary of the change (\"-\" reads stdin)")
	addCmd.Flags().BoolVar(&addOpts.allowUnknown, "allow-unknown", false, "Do not check package names against the workspace")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, root string, opts addOptions) error {
	cs, err := buildChangeset(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}

	var store *changeset.Store
	if opts.allowUnknown {
		abs, cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		store = changeset.NewStore(cfg.ChangesetPath(abs))
	} else {
		sess, err := openSession(cmd.Context(), root)
		if err != nil {
			return err
		}
		for _, r := range cs.Releases {
			if !sess.graph.Has(r.Package) {
				return clierrors.NewArgumentError(
					fmt.Sprintf("unknown package %q", r.Package),
					"Workspace packages: "+strings.Join(sess.graph.Names(), ", "),
					"Pass --allow-unknown to skip this check")
			}
		}
		store = sess.store
	}

	path, err := store.Write(cs)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
	return nil
}

// buildChangeset validates the flags and assembles the changeset record.
func buildChangeset(stdin io.Reader, opts addOptions) (*changeset.Changeset, error) {
	usage := "changeset add --package <name>[:severity] -m <summary>"
	if len(opts.packages) == 0 {
		return nil, clierrors.NewArgumentErrorWithUsage("at least one --package is required", usage)
	}

	defaultSeverity, err := changeset.ParseSeverity(opts.bump)
	if err != nil {
		return nil, clierrors.NewArgumentError("--bump: " + err.Error())
	}

	cs := &changeset.Changeset{Category: changeset.CategoryChanged}
	if opts.category != "" {
		category, err := changeset.ParseCategory(opts.category)
		if err != nil {
			return nil, clierrors.NewArgumentError("--category: " + err.Error())
		}
		cs.Category = category
	}

	seen := make(map[string]bool)
	for _, spec := range opts.packages {
		name, sevText, hasSeverity := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, clierrors.NewArgumentErrorWithUsage(fmt.Sprintf("invalid --package %q", spec), usage)
		}
		if changeset.IsReservedName(name) {
			return nil, clierrors.NewArgumentError(fmt.Sprintf("%q is reserved and cannot be used as a package name", name))
		}
		if seen[name] {
			return nil, clierrors.NewArgumentError(fmt.Sprintf("package %q given more than once", name))
		}
		seen[name] = true

		severity := defaultSeverity
		if hasSeverity {
			if severity, err = changeset.ParseSeverity(sevText); err != nil {
				return nil, clierrors.NewArgumentError(fmt.Sprintf("--package %s: %v", spec, err))
			}
		}
		cs.Releases = append(cs.Releases, changeset.Release{Package: name, Severity: severity})
	}

	summary := opts.message
	if summary == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading summary from stdin: %w", err)
		}
		summary = string(data)
	}
	cs.Summary = strings.TrimSpace(summary)
	if cs.Summary == "" {
		return nil, clierrors.NewArgumentErrorWithUsage("a summary is required (--message)", usage)
	}

	return cs, nil
}
