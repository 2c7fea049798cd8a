package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/changeset/internal/changeset"
	clierrors "github.com/ariel-frischer/changeset/internal/errors"
	"github.com/ariel-frischer/changeset/internal/release"
	"github.com/ariel-frischer/changeset/internal/verify"
)

// Tests that touch the global rootCmd or the process environment do not run
// in parallel.

// isolateUserConfig points the user config at an empty directory.
func isolateUserConfig(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)
}

func newTestCmd(stdin string) (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

// newWorkspace creates packages base and app, app requiring base ^1.0.0.
func newWorkspace(t *testing.T) string {
	t.Helper()
	return newWorkspaceAt(t, t.TempDir())
}

func newWorkspaceAt(t *testing.T, root string) string {
	t.Helper()
	writeFile(t, filepath.Join(root, "packages", "base", "package.yaml"), "name: base\nversion: 1.0.0\n")
	writeFile(t, filepath.Join(root, "packages", "base", "base.go"), "package base\n")
	writeFile(t, filepath.Join(root, "packages", "app", "package.yaml"),
		"name: app\nversion: 1.0.0\ndependencies:\n  base: \"^1.0.0\"\n")
	writeFile(t, filepath.Join(root, "packages", "app", "main.go"), "package main\n")
	return root
}

func writeChangeset(t *testing.T, root, id, frontMatter, summary string) {
	t.Helper()
	writeFile(t, filepath.Join(root, changeset.DefaultDir, id+".md"),
		"---\n"+frontMatter+"---\n\n"+summary+"\n")
}

// initRepo commits everything under root to main.
func initRepo(t *testing.T, root string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInitWithOptions(root, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	commitAll(t, repo, "initial")
	return repo
}

func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	for path, fs := range status {
		if fs.Worktree == git.Deleted {
			_, err = wt.Remove(path)
		} else {
			_, err = wt.Add(path)
		}
		require.NoError(t, err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author:            &object.Signature{Name: "Test", Email: "test@test.com", When: time.Now()},
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)
}

func checkoutNew(t *testing.T, repo *git.Repository, branch string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want int
	}{
		"success":          {err: nil, want: ExitSuccess},
		"coverage":         {err: &verify.CoverageError{Packages: []string{"app"}}, want: ExitVerificationFailed},
		"deleted":          {err: &verify.DeletedChangesetsError{Paths: []string{"x"}}, want: ExitVerificationFailed},
		"argument":         {err: clierrors.NewArgumentError("bad"), want: ExitInvalidArguments},
		"config":           {err: clierrors.NewConfigError(stderrors.New("bad")), want: ExitConfigError},
		"malformed":        {err: &changeset.MalformedError{ID: "x", Err: changeset.ErrNoReleases}, want: ExitInternalError},
		"untyped internal": {err: stderrors.New("boom"), want: ExitInternalError},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsCI(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		env  map[string]string
		want bool
	}{
		"no ci vars":     {env: map[string]string{}, want: false},
		"generic ci":     {env: map[string]string{"CI": "true"}, want: true},
		"github actions": {env: map[string]string{"GITHUB_ACTIONS": "true"}, want: true},
		"empty value":    {env: map[string]string{"CI": ""}, want: false},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			getenv := func(k string) string { return tt.env[k] }
			assert.Equal(t, tt.want, isCI(getenv))
		})
	}
}

func TestBuildChangeset(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts    addOptions
		stdin   string
		want    []changeset.Release
		summary string
		errMsg  string
	}{
		"default severity": {
			opts:    addOptions{packages: []string{"base"}, bump: "patch", message: "Fix"},
			want:    []changeset.Release{{Package: "base", Severity: changeset.Patch}},
			summary: "Fix",
		},
		"per package severity": {
			opts: addOptions{packages: []string{"base:major", "app"}, bump: "minor", message: "Rename"},
			want: []changeset.Release{
				{Package: "base", Severity: changeset.Major},
				{Package: "app", Severity: changeset.Minor},
			},
			summary: "Rename",
		},
		"summary from stdin": {
			opts:    addOptions{packages: []string{"base"}, bump: "patch", message: "-"},
			stdin:   "  From stdin\n\nDetails.\n",
			want:    []changeset.Release{{Package: "base", Severity: changeset.Patch}},
			summary: "From stdin\n\nDetails.",
		},
		"no packages": {
			opts:   addOptions{bump: "patch", message: "x"},
			errMsg: "at least one --package",
		},
		"bad bump": {
			opts:   addOptions{packages: []string{"base"}, bump: "huge", message: "x"},
			errMsg: "--bump",
		},
		"bad package severity": {
			opts:   addOptions{packages: []string{"base:tiny"}, bump: "patch", message: "x"},
			errMsg: "--package base:tiny",
		},
		"duplicate package": {
			opts:   addOptions{packages: []string{"base", "base:major"}, bump: "patch", message: "x"},
			errMsg: "more than once",
		},
		"reserved package name": {
			opts:   addOptions{packages: []string{"category:minor"}, bump: "patch", message: "x"},
			errMsg: "reserved",
		},
		"bad category": {
			opts:   addOptions{packages: []string{"base"}, bump: "patch", category: "misc", message: "x"},
			errMsg: "--category",
		},
		"empty summary": {
			opts:   addOptions{packages: []string{"base"}, bump: "patch", message: "  "},
			errMsg: "summary is required",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cs, err := buildChangeset(strings.NewReader(tt.stdin), tt.opts)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Equal(t, ExitInvalidArguments, ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cs.Releases)
			assert.Equal(t, tt.summary, cs.Summary)
			assert.Equal(t, changeset.CategoryChanged, cs.Category)
		})
	}
}

func TestRunInit(t *testing.T) {
	isolateUserConfig(t)
	root := t.TempDir()

	cmd, buf := newTestCmd("")
	require.NoError(t, runInit(cmd, root, false))
	assert.FileExists(t, filepath.Join(root, ".changeset", "config.yml"))
	assert.FileExists(t, filepath.Join(root, ".changeset", "README.md"))
	assert.Equal(t, 2, strings.Count(buf.String(), "Created"))

	writeFile(t, filepath.Join(root, ".changeset", "config.yml"), "base_branch: trunk\n")
	cmd, buf = newTestCmd("")
	require.NoError(t, runInit(cmd, root, false))
	assert.Contains(t, buf.String(), "already exists")
	assert.Equal(t, "base_branch: trunk\n", readFile(t, filepath.Join(root, ".changeset", "config.yml")))

	cmd, _ = newTestCmd("")
	require.NoError(t, runInit(cmd, root, true))
	assert.Contains(t, readFile(t, filepath.Join(root, ".changeset", "config.yml")), "base_branch: main")
}

func TestRunAdd(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)

	cmd, buf := newTestCmd("")
	err := runAdd(cmd, root, addOptions{packages: []string{"base:minor"}, bump: "patch", message: "Add helpers"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Created")

	store := changeset.NewStore(filepath.Join(root, ".changeset"))
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, changeset.Minor, loaded[0].SeverityFor("base"))
	assert.Equal(t, "Add helpers", loaded[0].Summary)
}

func TestRunAdd_UnknownPackage(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)

	cmd, _ := newTestCmd("")
	err := runAdd(cmd, root, addOptions{packages: []string{"ghost"}, bump: "patch", message: "x"})
	require.Error(t, err)
	assert.Equal(t, ExitInvalidArguments, ExitCode(err))
	assert.NoDirExists(t, filepath.Join(root, ".changeset"))

	cmd, _ = newTestCmd("")
	err = runAdd(cmd, root, addOptions{packages: []string{"ghost"}, bump: "patch", message: "x", allowUnknown: true})
	require.NoError(t, err)
}

func TestRunStatus(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)

	cmd, buf := newTestCmd("")
	require.NoError(t, runStatus(cmd, root, true))
	assert.Contains(t, buf.String(), "No pending changesets")

	writeChangeset(t, root, "0001", "\"base\": major\n", "Drop legacy API")
	cmd, buf = newTestCmd("")
	require.NoError(t, runStatus(cmd, root, true))
	out := buf.String()
	assert.Contains(t, out, "Pending changesets (1)")
	assert.Contains(t, out, "Release plan (2 packages)")
	assert.Contains(t, out, "dependency base")
}

func TestRunStatus_Errors(t *testing.T) {
	isolateUserConfig(t)

	tests := map[string]struct {
		setup func(t *testing.T, root string)
		kind  clierrors.Kind
	}{
		"malformed changeset": {
			setup: func(t *testing.T, root string) {
				writeFile(t, filepath.Join(root, ".changeset", "bad.md"), "no front matter\n")
			},
			kind: clierrors.KindMalformedChangeset,
		},
		"unknown package": {
			setup: func(t *testing.T, root string) {
				writeChangeset(t, root, "0001", "\"ghost\": patch\n", "x")
			},
			kind: clierrors.KindUnknownPackage,
		},
		"duplicate package": {
			setup: func(t *testing.T, root string) {
				writeFile(t, filepath.Join(root, "packages", "copy", "package.yaml"), "name: base\nversion: 2.0.0\n")
				writeChangeset(t, root, "0001", "\"base\": patch\n", "x")
			},
			kind: clierrors.KindDuplicatePackage,
		},
		"invalid config": {
			setup: func(t *testing.T, root string) {
				writeFile(t, filepath.Join(root, ".changeset", "config.yml"), "zero_version: round\n")
			},
			kind: clierrors.KindConfig,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			root := newWorkspace(t)
			tt.setup(t, root)

			cmd, _ := newTestCmd("")
			err := runStatus(cmd, root, true)
			require.Error(t, err)
			assert.Equal(t, tt.kind, clierrors.Classify(err))
		})
	}
}

func TestRunVerify(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	repo := initRepo(t, root)
	checkoutNew(t, repo, "feature")

	writeFile(t, filepath.Join(root, "packages", "app", "main.go"), "package main\n\nfunc main() {}\n")
	commitAll(t, repo, "change app")

	cmd, buf := newTestCmd("")
	err := runVerify(cmd, root, verifyOptions{})
	require.Error(t, err)
	assert.Equal(t, ExitVerificationFailed, ExitCode(err))
	assert.Contains(t, buf.String(), "missing")

	writeChangeset(t, root, "0001", "\"app\": patch\n", "Add main")
	commitAll(t, repo, "add changeset")

	cmd, buf = newTestCmd("")
	require.NoError(t, runVerify(cmd, root, verifyOptions{}))
	assert.Contains(t, buf.String(), "1 changed package(s) covered")
}

func TestRunVerify_WorkspaceInRepositorySubdirectory(t *testing.T) {
	isolateUserConfig(t)
	repoRoot := t.TempDir()
	ws := newWorkspaceAt(t, filepath.Join(repoRoot, "ws"))
	writeFile(t, filepath.Join(repoRoot, "other", "notes.txt"), "outside the workspace\n")
	repo := initRepo(t, repoRoot)
	checkoutNew(t, repo, "feature")

	writeFile(t, filepath.Join(ws, "packages", "app", "main.go"), "package main\n\nfunc main() {}\n")
	writeFile(t, filepath.Join(repoRoot, "other", "notes.txt"), "changed\n")
	commitAll(t, repo, "change app")

	cmd, buf := newTestCmd("")
	err := runVerify(cmd, ws, verifyOptions{base: "main"})
	var coverage *verify.CoverageError
	require.ErrorAs(t, err, &coverage)
	assert.Equal(t, []string{"app"}, coverage.Packages)
	assert.NotContains(t, buf.String(), "project-level")

	writeChangeset(t, ws, "0001", "\"app\": patch\n", "Add main")
	commitAll(t, repo, "add changeset")

	cmd, _ = newTestCmd("")
	require.NoError(t, runVerify(cmd, ws, verifyOptions{base: "main"}))
}

func TestRunVerify_DeletedChangeset(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	writeChangeset(t, root, "0001", "\"app\": patch\n", "Pending")
	repo := initRepo(t, root)
	checkoutNew(t, repo, "feature")

	require.NoError(t, os.Remove(filepath.Join(root, ".changeset", "0001.md")))
	commitAll(t, repo, "drop changeset")

	cmd, _ := newTestCmd("")
	err := runVerify(cmd, root, verifyOptions{})
	var deleted *verify.DeletedChangesetsError
	require.ErrorAs(t, err, &deleted)
	assert.Equal(t, []string{".changeset/0001.md"}, deleted.Paths)

	cmd, _ = newTestCmd("")
	require.NoError(t, runVerify(cmd, root, verifyOptions{allowDeletedChangesets: true}))
}

func TestRunVerify_UnknownBase(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	initRepo(t, root)

	cmd, _ := newTestCmd("")
	err := runVerify(cmd, root, verifyOptions{base: "does-not-exist"})
	require.Error(t, err)
	assert.Equal(t, ExitInvalidArguments, ExitCode(err))
}

func TestRunRelease_DryRun(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	writeChangeset(t, root, "0001", "\"base\": major\n", "Drop legacy API")
	initRepo(t, root)

	cmd, buf := newTestCmd("")
	require.NoError(t, runRelease(cmd, root, releaseOptions{dryRun: true}))

	out := buf.String()
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "tag base@2.0.0")
	assert.Contains(t, out, "tag app@1.0.1")
	assert.Contains(t, out, "packages/base/CHANGELOG.md")
	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "base", "package.yaml")), "version: 1.0.0")
	assert.NoFileExists(t, filepath.Join(root, "packages", "base", "CHANGELOG.md"))
	assert.FileExists(t, filepath.Join(root, ".changeset", "0001.md"))
}

func TestRunRelease(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	writeChangeset(t, root, "0001", "\"base\": major\n", "Drop legacy API")
	repo := initRepo(t, root)

	cmd, buf := newTestCmd("")
	require.NoError(t, runRelease(cmd, root, releaseOptions{}))
	assert.Contains(t, buf.String(), "Tagged app@1.0.1, base@2.0.0")

	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "base", "package.yaml")), "version: 2.0.0")
	app := readFile(t, filepath.Join(root, "packages", "app", "package.yaml"))
	assert.Contains(t, app, "version: 1.0.1")
	assert.Contains(t, app, "^2.0.0")
	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "base", "CHANGELOG.md")), "Drop legacy API")
	assert.NoFileExists(t, filepath.Join(root, ".changeset", "0001.md"))
	assert.FileExists(t, filepath.Join(root, ".changeset", "archive", "0001.md"))

	for _, tag := range []string{"base@2.0.0", "app@1.0.1"} {
		_, err := repo.Tag(tag)
		assert.NoError(t, err, tag)
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), "release commit includes every written file: %s", status)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "chore(release): app@1.0.1, base@2.0.0", commit.Message)

	// nothing left to release
	cmd, buf = newTestCmd("")
	require.NoError(t, runRelease(cmd, root, releaseOptions{}))
	assert.Contains(t, buf.String(), "nothing to release")
}

func TestRunRelease_WorkspaceInRepositorySubdirectory(t *testing.T) {
	isolateUserConfig(t)
	repoRoot := t.TempDir()
	ws := newWorkspaceAt(t, filepath.Join(repoRoot, "ws"))
	writeChangeset(t, ws, "0001", "\"base\": minor\n", "Add helper")
	repo := initRepo(t, repoRoot)

	cmd, buf := newTestCmd("")
	require.NoError(t, runRelease(cmd, ws, releaseOptions{}))
	assert.Contains(t, buf.String(), "Committed")
	assert.Contains(t, buf.String(), "on main")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), "release commit includes every written file: %s", status)

	_, err = repo.Tag("base@1.1.0")
	assert.NoError(t, err)
	assert.FileExists(t, filepath.Join(ws, ".changeset", "archive", "0001.md"))
}

func TestRunRelease_DirtyWorkingTree(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	writeChangeset(t, root, "0001", "\"base\": minor\n", "Add helper")
	initRepo(t, root)
	writeFile(t, filepath.Join(root, "packages", "base", "CHANGELOG.md"), "# Changelog\n\nhand edit\n")

	cmd, _ := newTestCmd("")
	err := runRelease(cmd, root, releaseOptions{})
	require.ErrorIs(t, err, release.ErrDirtyWorkingTree)
	assert.Equal(t, clierrors.KindDirtyWorkingTree, clierrors.Classify(err))
	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "base", "package.yaml")), "version: 1.0.0")

	cmd, _ = newTestCmd("")
	require.NoError(t, runRelease(cmd, root, releaseOptions{dryRun: true}))

	cmd, _ = newTestCmd("")
	require.NoError(t, runRelease(cmd, root, releaseOptions{noCommit: true}))
	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "base", "package.yaml")), "version: 1.1.0")
}

func TestRunRelease_NoCommit(t *testing.T) {
	isolateUserConfig(t)
	root := newWorkspace(t)
	writeChangeset(t, root, "0001", "\"app\": minor\n", "New flag")

	cmd, buf := newTestCmd("")
	require.NoError(t, runRelease(cmd, root, releaseOptions{noCommit: true, keepChangesets: true}))
	assert.NotContains(t, buf.String(), "Committed")

	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "app", "package.yaml")), "version: 1.1.0")
	assert.Contains(t, readFile(t, filepath.Join(root, "packages", "base", "package.yaml")), "version: 1.0.0")
	assert.FileExists(t, filepath.Join(root, ".changeset", "0001.md"))
}

func TestRunConfigShow(t *testing.T) {
	isolateUserConfig(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".changeset", "config.yml"), "base_branch: develop\n")

	cmd, buf := newTestCmd("")
	require.NoError(t, runConfigShow(cmd, root))
	assert.Contains(t, buf.String(), "base_branch: develop")
	assert.Contains(t, buf.String(), "chore(release): {releases}")
}

func TestExecute_ArgumentErrors(t *testing.T) {
	isolateUserConfig(t)
	detectEnvironment = func() Environment { return Environment{} }

	tests := map[string][]string{
		"unknown flag":      {"add", "--bogus"},
		"unknown command":   {"publish"},
		"unexpected arg":    {"status", "extra"},
		"missing packages":  {"--cwd", t.TempDir(), "add", "-m", "x"},
		"foreign flag":      {"version", "--base", "x"},
		"bad dry-run value": {"release", "--dry-run=maybe"},
	}

	for name, args := range tests {
		args := args
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetErr(&stderr)
			rootCmd.SetArgs(args)
			t.Cleanup(func() {
				rootCmd.SetArgs(nil)
				addOpts = addOptions{bump: "patch"}
			})

			assert.Equal(t, ExitInvalidArguments, Execute())
			assert.Contains(t, stderr.String(), "Argument Error")
		})
	}
}

func TestExecute_Version(t *testing.T) {
	detectEnvironment = func() Environment { return Environment{} }

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Equal(t, ExitSuccess, Execute())
	assert.Contains(t, stdout.String(), "changeset dev")
}
