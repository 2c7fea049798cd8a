package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/changeset/internal/changelog"
	"github.com/ariel-frischer/changeset/internal/git"
	"github.com/ariel-frischer/changeset/internal/output"
	"github.com/ariel-frischer/changeset/internal/progress"
	"github.com/ariel-frischer/changeset/internal/release"
)

type releaseOptions struct {
	dryRun         bool
	noCommit       bool
	noTags         bool
	keepChangesets bool
}

var releaseOpts releaseOptions

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Apply pending changesets: bump versions, write changelogs, commit and tag",
	Long: `Resolve the pending changesets into a release and apply it:

  1. bump each released package's version in its package.yaml and rewrite
     dependents' requirements the bump breaks
  2. prepend a section to each released package's changelog
  3. move the consumed changesets to .changeset/archive/
  4. commit the result and tag every released package

Every write is validated before the first file changes; a failed validation
leaves the workspace untouched. Tags are only created together with the
release commit.`,
	Example: `  # Preview the release without writing anything
  changeset release --dry-run

  # Write files only, commit by hand
  changeset release --no-commit`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, rootDir, releaseOpts)
	},
}

func init() {
	releaseCmd.Flags().BoolVarP(&releaseOpts.dryRun, "dry-run", "n", false, "Show the release without writing anything")
	releaseCmd.Flags().BoolVar(&releaseOpts.noCommit, "no-commit", false, "Write files but do not commit or tag")
	releaseCmd.Flags().BoolVar(&releaseOpts.noTags, "no-tags", false, "Commit without tagging")
	releaseCmd.Flags().BoolVar(&releaseOpts.keepChangesets, "keep-changesets", false, "Leave consumed changesets in place")
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, root string, opts releaseOptions) error {
	out := cmd.OutOrStdout()

	sess, err := openSession(cmd.Context(), root)
	if err != nil {
		return err
	}
	plan, err := sess.plan()
	if err != nil {
		return err
	}
	if plan.IsEmpty() {
		output.PrintNote(out, "No pending changesets, nothing to release.")
		return nil
	}

	commit := sess.cfg.Git.Commit && !opts.noCommit
	var repo *git.Repository
	if commit {
		if repo, err = git.Open(sess.root); err != nil {
			return err
		}
	}

	var gitOps release.Git
	if repo != nil {
		gitOps = repo
	}
	orch := release.New(sess.graph, sess.store, gitOps, release.Options{
		Root:           sess.root,
		ChangelogFile:  sess.cfg.Changelog,
		CommitMessage:  sess.cfg.Git.CommitMessage,
		Commit:         commit,
		Tags:           commit && sess.cfg.Git.Tags && !opts.noTags,
		KeepChangesets: opts.keepChangesets,
	})

	caps := progress.DetectTerminalCapabilities()
	caps.IsTTY = caps.IsTTY && environment.Interactive
	display := progress.NewDisplay(cmd.ErrOrStderr(), caps)

	if !opts.dryRun {
		if err := orch.CheckWorkingTree(); err != nil {
			return err
		}
	}

	display.Start("Preparing release")
	tx, err := orch.Prepare(plan, sess.changesets)
	if err == nil {
		err = orch.Validate(tx)
	}
	if err != nil {
		display.Fail()
		return err
	}
	display.Complete()

	plain := !environment.Interactive
	output.RenderPlan(out, plan, output.TableOptions{Plain: plain})
	fmt.Fprintln(out)
	if err := changelog.FormatTerminal(tx.Entries, out, changelog.FormatOptions{Plain: plain}); err != nil {
		return err
	}

	if opts.dryRun {
		printDryRun(cmd, tx, commit)
		return nil
	}

	display.Start("Writing release")
	outcome, err := orch.Commit(cmd.Context(), tx)
	if err != nil {
		display.Fail()
		return err
	}
	display.Complete()

	output.PrintSuccess(out, fmt.Sprintf("Released %d package(s), %d file(s) written, %d changeset(s) archived",
		plan.Len(), len(outcome.Written), len(outcome.Archived)))
	if outcome.CommitHash != "" {
		msg := "Committed " + shortHash(outcome.CommitHash)
		if branch, err := repo.CurrentBranch(); err == nil && branch != "" {
			msg += " on " + branch
		}
		output.PrintSuccess(out, msg)
	}
	if len(outcome.Tags) > 0 {
		output.PrintSuccess(out, "Tagged "+strings.Join(outcome.Tags, ", "))
	}
	return nil
}

func printDryRun(cmd *cobra.Command, tx *release.Transaction, commit bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	output.PrintHeader(out, "Dry run: no files written")
	for _, p := range tx.Paths() {
		fmt.Fprintf(out, "  %s\n", p)
	}
	for _, tag := range tx.Tags {
		fmt.Fprintf(out, "  tag %s\n", tag.Name)
	}
	if commit {
		fmt.Fprintf(out, "  commit %q\n", tx.CommitMessage)
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
