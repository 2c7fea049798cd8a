// Package git wraps the go-git operations the release workflow needs:
// listing files changed since a base revision, staging, committing and
// tagging. Every operation on a Repository is serialized through a mutex;
// there is no cross-process locking.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for git operations.
// Pass nil to disable debug logging. The logger function should format
// and output the message (similar to log.Printf signature).
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

// logDebug logs a debug message if the debug logger is set.
func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// FileStatus is how a file changed between two revisions.
type FileStatus string

const (
	Added    FileStatus = "added"
	Modified FileStatus = "modified"
	Deleted  FileStatus = "deleted"
	Renamed  FileStatus = "renamed"
)

// FileChange is a single changed path, slash-separated and relative to the
// repository root. OldPath is set for renames.
type FileChange struct {
	Path    string
	OldPath string
	Status  FileStatus
}

// Paths returns every path the change touches: the old path of a rename
// as well as the new one.
func (c FileChange) Paths() []string {
	if c.OldPath != "" && c.OldPath != c.Path {
		return []string{c.OldPath, c.Path}
	}
	return []string{c.Path}
}

// ErrRevisionNotFound is returned when a base revision cannot be resolved.
var ErrRevisionNotFound = errors.New("revision not found")

// ErrTagExists is returned when creating a tag that already exists.
var ErrTagExists = errors.New("tag already exists")

// Repository is a mutex-guarded handle on a git repository.
type Repository struct {
	mu   sync.Mutex
	repo *git.Repository
	root string
}

// Open opens the repository containing path, walking up to find .git.
// If path is empty, the current working directory is used.
func Open(path string) (*Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	logDebug("[git] opening repository at %s", path)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	root := worktree.Filesystem.Root()
	logDebug("[git] repository root: %s", root)
	return &Repository{repo: repo, root: root}, nil
}

// Root returns the absolute path of the working tree.
func (r *Repository) Root() string {
	return r.root
}

// WorkspacePrefix returns dir relative to the working tree root,
// slash-separated, or "" when dir is the root itself. Paths reported by
// ChangedFiles and accepted by Stage carry this prefix for files under dir.
func (r *Repository) WorkspacePrefix(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	root := r.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository at %s", dir, r.root)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// CurrentBranch returns the name of the checked out branch, or an empty
// string in detached HEAD state.
func (r *Repository) CurrentBranch() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD reference: %w", err)
	}
	if !head.Name().IsBranch() {
		logDebug("[git] CurrentBranch: detached HEAD state")
		return "", nil
	}
	return head.Name().Short(), nil
}

// ChangedFiles lists files that differ between the tree at base and the
// tree at HEAD, sorted by path. base may name a branch, tag or commit; a
// branch only known as a remote-tracking ref (origin/<base>) is also
// accepted. Renames are detected.
func (r *Repository) ChangedFiles(ctx context.Context, base string) ([]FileChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	baseCommit, err := r.resolveCommit(base)
	if err != nil {
		return nil, err
	}
	headCommit, err := r.resolveCommit("HEAD")
	if err != nil {
		return nil, err
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", base, err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of HEAD: %w", err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..HEAD: %w", base, err)
	}

	files := make([]FileChange, 0, len(changes))
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("classifying change: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			files = append(files, FileChange{Path: ch.To.Name, Status: Added})
		case merkletrie.Delete:
			files = append(files, FileChange{Path: ch.From.Name, Status: Deleted})
		case merkletrie.Modify:
			if ch.From.Name != ch.To.Name {
				files = append(files, FileChange{Path: ch.To.Name, OldPath: ch.From.Name, Status: Renamed})
			} else {
				files = append(files, FileChange{Path: ch.To.Name, Status: Modified})
			}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	logDebug("[git] ChangedFiles: %d files changed since %s", len(files), base)
	return files, nil
}

// resolveCommit resolves a revision to a commit. Tag and branch names are
// looked up as references first, since tag names such as core@1.2.0 are not
// valid revision syntax. The origin remote-tracking branch of the same name
// is the last fallback.
func (r *Repository) resolveCommit(rev string) (*object.Commit, error) {
	if rev != "HEAD" {
		for _, name := range []plumbing.ReferenceName{
			plumbing.NewTagReferenceName(rev),
			plumbing.NewBranchReferenceName(rev),
			plumbing.NewRemoteReferenceName("origin", rev),
		} {
			ref, err := r.repo.Reference(name, true)
			if err != nil {
				continue
			}
			logDebug("[git] %s resolved as %s", rev, name)
			return r.peelCommit(ref.Hash(), rev)
		}
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, rev)
	}
	return r.peelCommit(*hash, rev)
}

// peelCommit returns the commit hash points at, following annotated tags.
func (r *Repository) peelCommit(hash plumbing.Hash, rev string) (*object.Commit, error) {
	if tag, err := r.repo.TagObject(hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return nil, fmt.Errorf("reading commit of tag %s: %w", rev, err)
		}
		return commit, nil
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", rev, err)
	}
	return commit, nil
}

// IsClean reports whether the working tree has no staged, modified or
// untracked files.
func (r *Repository) IsClean() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	worktree, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}
	return status.IsClean(), nil
}

// Stage adds paths (relative to the repository root) to the index.
// Paths that no longer exist on disk are staged as deletions.
func (r *Repository) Stage(paths ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	worktree, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	for _, p := range paths {
		if _, err := worktree.Filesystem.Lstat(p); errors.Is(err, os.ErrNotExist) {
			if _, err := worktree.Remove(p); err != nil {
				return fmt.Errorf("staging removal of %s: %w", p, err)
			}
			continue
		}
		if _, err := worktree.Add(p); err != nil {
			return fmt.Errorf("staging %s: %w", p, err)
		}
	}

	logDebug("[git] Stage: staged %d paths", len(paths))
	return nil
}

// Commit records the index as a new commit on HEAD and returns its hash.
func (r *Repository) Commit(message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	worktree, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	sig := r.signature()
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	logDebug("[git] Commit: %s", hash)
	return hash.String(), nil
}

// CreateTag creates an annotated tag on HEAD.
func (r *Repository) CreateTag(name, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.repo.Tag(name); err == nil {
		return fmt.Errorf("%w: %s", ErrTagExists, name)
	} else if !errors.Is(err, git.ErrTagNotFound) {
		return fmt.Errorf("looking up tag %s: %w", name, err)
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD reference: %w", err)
	}

	// annotated tags require a message
	if strings.TrimSpace(message) == "" {
		message = name
	}
	_, err = r.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger:  r.signature(),
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("creating tag %s: %w", name, err)
	}

	logDebug("[git] CreateTag: %s at %s", name, head.Hash())
	return nil
}

// TagExists reports whether a tag with the given name exists.
func (r *Repository) TagExists(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.repo.Tag(name)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up tag %s: %w", name, err)
	}
	return true, nil
}

// signature builds the author identity from git config, then the standard
// GIT_AUTHOR_* environment variables, then a fixed fallback.
func (r *Repository) signature() *object.Signature {
	name, email := "", ""
	if cfg, err := r.repo.ConfigScoped(config.GlobalScope); err == nil {
		name, email = cfg.User.Name, cfg.User.Email
	}
	if name == "" {
		name = os.Getenv("GIT_AUTHOR_NAME")
	}
	if email == "" {
		email = os.Getenv("GIT_AUTHOR_EMAIL")
	}
	if name == "" {
		name = "changeset"
	}
	if email == "" {
		email = "changeset@localhost"
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}
