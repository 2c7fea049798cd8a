// Package cli implements the changeset command line: init, add, status,
// verify, release and version.
package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/changeset/internal/changeset"
	clierrors "github.com/ariel-frischer/changeset/internal/errors"
	"github.com/ariel-frischer/changeset/internal/git"
	"github.com/ariel-frischer/changeset/internal/graph"
	"github.com/ariel-frischer/changeset/internal/release"
	"github.com/ariel-frischer/changeset/internal/resolve"
	"github.com/ariel-frischer/changeset/internal/verify"
	"github.com/ariel-frischer/changeset/internal/workspace"
)

var (
	rootDir string
	debug   bool
	noColor bool

	// environment is detected once in PersistentPreRunE.
	environment Environment
	// detectEnvironment is replaced in tests.
	detectEnvironment = DetectEnvironment
)

var rootCmd = &cobra.Command{
	Use:   "changeset",
	Short: "Changeset-driven releases for multi-package workspaces",
	Long: `changeset coordinates versioning and changelogs across the packages of a workspace.

Contributors record their intent to release as changeset files in .changeset/.
At release time the pending changesets are resolved into version bumps,
cascaded to dependents whose requirements break, written to manifests and
changelogs, and committed and tagged in a single step.`,
	Example: `  # Record a change to one package
  changeset add --package core --bump minor -m "Add streaming API"

  # Show pending changesets and the release they produce
  changeset status

  # Fail CI when a changed package has no changeset
  changeset verify --base origin/main

  # Preview, then perform, the release
  changeset release --dry-run
  changeset release`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			enableDebugLogging()
		}
		environment = detectEnvironment()
		if noColor || !environment.Interactive {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "cwd", "C", ".", "Workspace root directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Print debug logs to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.NewArgumentErrorWithUsage(err.Error(), cmd.UseLine(),
			"Run '"+cmd.CommandPath()+" --help' for the list of flags")
	})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		err = normalizeError(err)
		clierrors.FprintError(rootCmd.ErrOrStderr(), err)
	}
	return ExitCode(err)
}

// normalizeError turns cobra's untyped usage errors into argument errors.
func normalizeError(err error) error {
	if clierrors.Classify(err) != clierrors.KindInternal {
		return err
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown shorthand flag") {
		return clierrors.NewArgumentError(msg, "Run 'changeset --help' for usage")
	}
	return err
}

// noArgs rejects positional arguments with an argument error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return clierrors.NewArgumentErrorWithUsage(
			"unexpected argument "+strings.Join(args, " "), cmd.UseLine())
	}
	return nil
}

// enableDebugLogging routes every package's debug output to the standard logger.
func enableDebugLogging() {
	logger := func(format string, args ...any) {
		log.Printf(format, args...)
	}
	changeset.SetDebugLogger(logger)
	workspace.SetDebugLogger(logger)
	graph.SetDebugLogger(logger)
	resolve.SetDebugLogger(logger)
	verify.SetDebugLogger(logger)
	release.SetDebugLogger(logger)
	git.SetDebugLogger(logger)
}
