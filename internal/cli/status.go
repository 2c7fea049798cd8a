package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/changeset/internal/changeset"
	clierrors "github.com/ariel-frischer/changeset/internal/errors"
	"github.com/ariel-frischer/changeset/internal/output"
)

var (
	statusWatch bool
	statusPlain bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changesets and the release they produce",
	Long: `List the pending changesets and the version bumps they resolve to,
including dependents bumped because a release breaks their requirement.

With --watch the output is refreshed whenever a changeset file changes.`,
	Example: `  changeset status
  changeset status --watch`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plain := statusPlain || !environment.Interactive
		if statusWatch {
			return watchStatus(cmd, rootDir, plain)
		}
		return runStatus(cmd, rootDir, plain)
	},
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Refresh when changesets change")
	statusCmd.Flags().BoolVar(&statusPlain, "plain", false, "ASCII tables without colors")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, root string, plain bool) error {
	sess, err := openSession(cmd.Context(), root)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	opts := output.TableOptions{Plain: plain}

	output.PrintHeader(out, fmt.Sprintf("Pending changesets (%d)", len(sess.changesets)))
	if len(sess.changesets) == 0 {
		output.PrintNote(out, "No pending changesets. Create one with 'changeset add'.")
		return nil
	}
	output.RenderChangesets(out, sess.changesets, opts)

	plan, err := sess.plan()
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	output.PrintHeader(out, fmt.Sprintf("Release plan (%d packages)", plan.Len()))
	output.RenderPlan(out, plan, opts)
	return nil
}

// watchStatus prints the status, then again after every changeset change
// until the command context is cancelled. Errors while watching are printed
// instead of ending the watch, since files are often mid-edit.
func watchStatus(cmd *cobra.Command, root string, plain bool) error {
	if err := runStatus(cmd, root, plain); err != nil {
		clierrors.FprintError(cmd.ErrOrStderr(), err)
	}

	abs, cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	store := changeset.NewStore(cfg.ChangesetPath(abs))
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", store.Dir(), err)
	}

	output.PrintNote(cmd.OutOrStdout(), "Watching "+store.Dir()+" (Ctrl+C to stop)")
	return store.Watch(cmd.Context(), func() {
		fmt.Fprintln(cmd.OutOrStdout())
		if err := runStatus(cmd, root, plain); err != nil {
			clierrors.FprintError(cmd.ErrOrStderr(), err)
		}
	})
}
