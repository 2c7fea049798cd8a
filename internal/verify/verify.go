// Package verify checks that every package changed since a base revision is
// named by at least one pending changeset. Verification is read-only.
package verify

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/git"
	"github.com/ariel-frischer/changeset/internal/graph"
)

// Differ lists files changed between base and HEAD.
type Differ interface {
	ChangedFiles(ctx context.Context, base string) ([]git.FileChange, error)
}

// Options configures a Verifier.
type Options struct {
	// ChangesetDir is the changeset directory relative to the workspace
	// root, slash-separated. Defaults to ".changeset".
	ChangesetDir string
	// Ignore holds doublestar globs for paths that never need a changeset.
	Ignore []string
	// AllowDeletedChangesets disables the deleted changeset check.
	AllowDeletedChangesets bool
	// Prefix is the workspace root relative to the repository root,
	// slash-separated; empty when they coincide. Changed paths outside it
	// are skipped and the rest are made workspace-relative.
	Prefix string
}

// Result is the outcome of a verification run.
type Result struct {
	Base string
	// Affected lists packages with code changes, sorted.
	Affected []string
	// Covered lists affected packages named by a changeset, sorted.
	Covered []string
	// Uncovered lists affected packages no changeset names, sorted.
	Uncovered []string
	// PackageFiles maps affected packages to their changed paths.
	PackageFiles map[string][]string
	ProjectFiles []string
	IgnoredFiles []string
	// ChangesetFiles are changeset files added or modified by the changes.
	ChangesetFiles []string
	// DeletedChangesets are pending changeset files the changes remove.
	DeletedChangesets []string

	allowDeleted bool
}

// OK reports whether verification passed.
func (r *Result) OK() bool {
	return r.Err() == nil
}

// Err returns the verification failure, if any. Uncovered packages and
// deleted changesets are both reported when both occur.
func (r *Result) Err() error {
	var errs []error
	if len(r.Uncovered) > 0 {
		errs = append(errs, &CoverageError{Packages: r.Uncovered})
	}
	if len(r.DeletedChangesets) > 0 && !r.allowDeleted {
		errs = append(errs, &DeletedChangesetsError{Paths: r.DeletedChangesets})
	}
	return errors.Join(errs...)
}

// Verifier runs coverage checks against a fixed graph and changeset set.
type Verifier struct {
	differ     Differ
	mapper     *Mapper
	changesets []*changeset.Changeset
	opts       Options
}

// New returns a verifier. changesets are the pending changesets that may
// cover changed packages.
func New(differ Differ, g *graph.Graph, changesets []*changeset.Changeset, opts Options) (*Verifier, error) {
	if opts.ChangesetDir == "" {
		opts.ChangesetDir = changeset.DefaultDir
	}
	opts.ChangesetDir = strings.Trim(path.Clean(opts.ChangesetDir), "/")
	if opts.Prefix != "" {
		opts.Prefix = strings.Trim(path.Clean(opts.Prefix), "/")
		if opts.Prefix == "." {
			opts.Prefix = ""
		}
	}

	mapper, err := NewMapper(g, opts.Ignore)
	if err != nil {
		return nil, err
	}
	return &Verifier{differ: differ, mapper: mapper, changesets: changesets, opts: opts}, nil
}

// Verify diffs HEAD against base and checks coverage. A non-nil error means
// the check could not run; a failed check is reported through Result.Err.
func (v *Verifier) Verify(ctx context.Context, base string) (*Result, error) {
	changes, err := v.differ.ChangedFiles(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("listing changes since %s: %w", base, err)
	}

	result := &Result{Base: base, allowDeleted: v.opts.AllowDeletedChangesets}

	var codePaths []string
	outside := 0
	for _, raw := range changes {
		ch, ok := v.rebase(raw)
		if !ok {
			outside++
			continue
		}
		if v.isPendingChangeset(ch.OldPath) && !v.isPendingChangeset(ch.Path) {
			// moved out of the pending set, e.g. into the archive
			result.DeletedChangesets = append(result.DeletedChangesets, ch.OldPath)
		}
		for _, p := range ch.Paths() {
			if !v.inChangesetDir(p) {
				codePaths = append(codePaths, p)
				continue
			}
			switch {
			case !v.isPendingChangeset(p):
			case ch.Status == git.Deleted:
				result.DeletedChangesets = append(result.DeletedChangesets, p)
			case p == ch.Path:
				result.ChangesetFiles = append(result.ChangesetFiles, p)
			}
		}
	}

	mapping := v.mapper.Map(dedupe(codePaths))
	result.PackageFiles = mapping.PackageFiles
	result.ProjectFiles = mapping.ProjectFiles
	result.IgnoredFiles = mapping.IgnoredFiles
	result.Affected = mapping.Affected()
	sort.Strings(result.DeletedChangesets)

	named := make(map[string]bool)
	for _, cs := range v.changesets {
		for _, rel := range cs.Releases {
			named[rel.Package] = true
		}
	}
	for _, pkg := range result.Affected {
		if named[pkg] {
			result.Covered = append(result.Covered, pkg)
		} else {
			result.Uncovered = append(result.Uncovered, pkg)
		}
	}

	logDebug("[verify] %d changed files (%d outside the workspace), %d affected packages, %d uncovered",
		len(changes), outside, len(result.Affected), len(result.Uncovered))
	return result, nil
}

// rebase makes a repository-relative change workspace-relative. A rename
// across the workspace boundary keeps only the side inside it; a change
// entirely outside the workspace is dropped.
func (v *Verifier) rebase(ch git.FileChange) (git.FileChange, bool) {
	if v.opts.Prefix == "" {
		return ch, true
	}
	newPath, newInside := v.underPrefix(ch.Path)
	oldPath, oldInside := v.underPrefix(ch.OldPath)

	switch {
	case newInside && oldInside:
		ch.Path, ch.OldPath = newPath, oldPath
	case newInside:
		ch.Path, ch.OldPath = newPath, ""
		if ch.Status == git.Renamed {
			ch.Status = git.Added
		}
	case oldInside:
		ch = git.FileChange{Path: oldPath, Status: git.Deleted}
	default:
		return ch, false
	}
	return ch, true
}

func (v *Verifier) underPrefix(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(p, v.opts.Prefix+"/")
	return rest, ok
}

func (v *Verifier) inChangesetDir(p string) bool {
	return p == v.opts.ChangesetDir || strings.HasPrefix(p, v.opts.ChangesetDir+"/")
}

// isPendingChangeset reports whether p is a changeset file directly inside
// the changeset directory (archived changesets are not pending).
func (v *Verifier) isPendingChangeset(p string) bool {
	if p == "" || path.Dir(p) != v.opts.ChangesetDir {
		return false
	}
	return changeset.IsChangesetFile(path.Base(p))
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// debugLogger is a no-op unless SetDebugLogger is called.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for verification.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}
