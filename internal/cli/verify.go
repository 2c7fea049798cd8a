package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/changeset/internal/git"
	"github.com/ariel-frischer/changeset/internal/output"
	"github.com/ariel-frischer/changeset/internal/verify"
)

type verifyOptions struct {
	base                   string
	allowDeletedChangesets bool
}

var verifyOpts verifyOptions

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every changed package has a changeset",
	Long: `Compare HEAD against the base branch and fail when a package with
changed files is not named by any pending changeset, or when a pending
changeset was deleted.

Exit codes: 0 covered, 1 verification failed, 3 unknown base ref.`,
	Example: `  changeset verify
  changeset verify --base origin/main
  changeset verify --allow-deleted-changesets`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, rootDir, verifyOpts)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyOpts.base, "base", "", "Base ref to diff against (default: config base_branch)")
	verifyCmd.Flags().BoolVar(&verifyOpts.allowDeletedChangesets, "allow-deleted-changesets", false, "Do not fail when pending changesets were deleted")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, root string, opts verifyOptions) error {
	sess, err := openSession(cmd.Context(), root)
	if err != nil {
		return err
	}

	repo, err := git.Open(sess.root)
	if err != nil {
		return err
	}

	base := opts.base
	if base == "" {
		base = sess.cfg.BaseBranch
	}

	prefix, err := repo.WorkspacePrefix(sess.root)
	if err != nil {
		return err
	}

	changesetDir, err := filepath.Rel(sess.root, sess.store.Dir())
	if err != nil {
		return fmt.Errorf("resolving changeset directory: %w", err)
	}

	verifier, err := verify.New(repo, sess.graph, sess.changesets, verify.Options{
		ChangesetDir:           filepath.ToSlash(changesetDir),
		Ignore:                 sess.cfg.Ignore,
		AllowDeletedChangesets: opts.allowDeletedChangesets || sess.cfg.AllowDeletedChangesets,
		Prefix:                 prefix,
	})
	if err != nil {
		return err
	}

	result, err := verifier.Verify(cmd.Context(), base)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	output.PrintHeader(out, fmt.Sprintf("Changes since %s", base))
	output.RenderVerifyResult(out, result, output.TableOptions{Plain: !environment.Interactive})

	if err := result.Err(); err != nil {
		output.PrintFailure(out, "Verification failed")
		return err
	}
	if len(result.DeletedChangesets) > 0 {
		output.PrintNote(out, fmt.Sprintf("%d deleted changeset(s) allowed", len(result.DeletedChangesets)))
	}
	output.PrintSuccess(out, fmt.Sprintf("%d changed package(s) covered by changesets", len(result.Covered)))
	return nil
}
