// Package release applies a version plan to the workspace. A release is
// computed in memory as a Transaction, validated as a whole, and only then
// written: manifests, changelogs, changeset archival, and finally the
// release commit and tags.
//
// Writes that fail part way are not rolled back; validating everything
// before the first write keeps that window small.
package release

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/ariel-frischer/changeset/internal/changelog"
	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/graph"
	"github.com/ariel-frischer/changeset/internal/resolve"
	"github.com/ariel-frischer/changeset/internal/workspace"
)

// DefaultCommitMessage is used when no commit message is configured.
// {releases} expands to the released tags, comma-separated.
const DefaultCommitMessage = "chore(release): {releases}"

// Git is the subset of git operations a release performs.
type Git interface {
	// WorkspacePrefix returns dir relative to the repository root.
	WorkspacePrefix(dir string) (string, error)
	IsClean() (bool, error)
	Stage(paths ...string) error
	Commit(message string) (string, error)
	CreateTag(name, message string) error
	TagExists(name string) (bool, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Root is the workspace root; relative manifest paths and package
	// directories are resolved against it.
	Root string
	// ChangelogFile is the changelog file name inside each package
	// directory. Defaults to CHANGELOG.md.
	ChangelogFile string
	// CommitMessage is the release commit message template.
	CommitMessage string
	// Commit creates a release commit through Git.
	Commit bool
	// Tags creates one tag per released package. Tags are only created
	// together with the release commit.
	Tags bool
	// KeepChangesets leaves consumed changesets in place.
	KeepChangesets bool
	// Now returns the release date. Defaults to time.Now.
	Now func() time.Time
}

// Outcome reports what Commit did.
type Outcome struct {
	Written    []string
	Archived   []string
	CommitHash string
	Tags       []string
}

// Orchestrator prepares, validates and commits releases.
type Orchestrator struct {
	graph *graph.Graph
	store *changeset.Store
	git   Git
	opts  Options
}

// New returns an orchestrator. repo may be nil when no commit or tags are
// wanted.
func New(g *graph.Graph, store *changeset.Store, repo Git, opts Options) *Orchestrator {
	if opts.ChangelogFile == "" {
		opts.ChangelogFile = "CHANGELOG.md"
	}
	if opts.CommitMessage == "" {
		opts.CommitMessage = DefaultCommitMessage
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{graph: g, store: store, git: repo, opts: opts}
}

// CheckWorkingTree returns ErrDirtyWorkingTree when a release commit is
// enabled and the working tree has uncommitted or untracked changes, which
// the release commit would otherwise pick up.
func (o *Orchestrator) CheckWorkingTree() error {
	if o.git == nil || !o.opts.Commit {
		return nil
	}
	clean, err := o.git.IsClean()
	if err != nil {
		return fmt.Errorf("checking working tree: %w", err)
	}
	if !clean {
		return ErrDirtyWorkingTree
	}
	return nil
}

// Prepare computes every mutation for plan in memory. Nothing is written.
// Problems found while reading current state are kept on the transaction
// and reported by Validate together with everything else.
func (o *Orchestrator) Prepare(plan *resolve.Plan, changesets []*changeset.Changeset) (*Transaction, error) {
	tx := &Transaction{
		Plan:     plan,
		Entries:  changelog.Aggregate(plan, changesets),
		Consumed: changesets,
		root:     o.opts.Root,
	}
	if plan.IsEmpty() {
		return tx, nil
	}

	date := o.opts.Now().Format("2006-01-02")
	var tagNames []string

	for _, bump := range plan.Bumps() {
		pkg, ok := o.graph.Package(bump.Package)
		if !ok {
			return nil, fmt.Errorf("planned package %q is not in the workspace", bump.Package)
		}

		if mw, err := o.prepareManifest(pkg, bump, plan); err != nil {
			tx.problems = append(tx.problems, Problem{Path: o.manifestPath(pkg), Message: err.Error()})
		} else {
			tx.Manifests = append(tx.Manifests, *mw)
		}

		tag := TagName(o.graph, pkg.Name, bump.Target.String())
		tagNames = append(tagNames, tag)
		if o.opts.Tags {
			tx.Tags = append(tx.Tags, Tag{
				Name:    tag,
				Package: pkg.Name,
				Version: bump.Target.String(),
				Message: fmt.Sprintf("%s %s", pkg.Name, bump.Target),
			})
		}
	}

	for _, entry := range tx.Entries {
		pkg, _ := o.graph.Package(entry.Package)
		cw, err := o.prepareChangelog(pkg, entry, date)
		if err != nil {
			tx.problems = append(tx.problems, Problem{Path: cw.Path, Message: err.Error()})
			continue
		}
		tx.Changelogs = append(tx.Changelogs, cw)
	}

	if !o.opts.KeepChangesets {
		for _, cs := range changesets {
			tx.Archives = append(tx.Archives, ArchiveMove{
				Changeset: cs,
				From:      cs.Path,
				To:        o.store.ArchivePath(cs),
			})
		}
	}

	tx.CommitMessage = strings.ReplaceAll(o.opts.CommitMessage, "{releases}", strings.Join(tagNames, ", "))

	logDebug("[release] prepared %d manifests, %d changelogs, %d archives, %d tags",
		len(tx.Manifests), len(tx.Changelogs), len(tx.Archives), len(tx.Tags))
	return tx, nil
}

func (o *Orchestrator) manifestPath(pkg *graph.Package) string {
	return o.resolvePath(pkg.ManifestPath)
}

func (o *Orchestrator) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.opts.Root, filepath.FromSlash(p))
}

func (o *Orchestrator) prepareManifest(pkg *graph.Package, bump *resolve.Bump, plan *resolve.Plan) (*ManifestWrite, error) {
	path := o.manifestPath(pkg)
	m, err := workspace.ReadManifest(path)
	if err != nil {
		return nil, err
	}

	mw := &ManifestWrite{
		Package:     pkg.Name,
		Path:        path,
		FromVersion: m.Version,
		ToVersion:   bump.Target.String(),
	}
	if err := m.SetVersion(mw.ToVersion); err != nil {
		return nil, err
	}

	for _, edge := range pkg.Edges {
		dep, ok := plan.Get(edge.To)
		if !ok || edge.Requirement.Satisfied(dep.Target) {
			continue
		}
		rewritten := edge.Requirement.Rewrite(dep.Target)
		if err := m.SetRequirement(edge.To, rewritten); err != nil {
			return nil, err
		}
		mw.Requirements = append(mw.Requirements, RequirementUpdate{
			Dependency: edge.To,
			From:       edge.Requirement.String(),
			To:         rewritten,
		})
	}

	content, err := m.Encode()
	if err != nil {
		return nil, err
	}
	mw.Content = content
	return mw, nil
}

func (o *Orchestrator) prepareChangelog(pkg *graph.Package, entry changelog.Entry, date string) (ChangelogWrite, error) {
	cw := ChangelogWrite{
		Package: entry.Package,
		Path:    filepath.Join(o.resolvePath(pkg.Dir), o.opts.ChangelogFile),
		Block:   changelog.Render(entry, date),
	}
	if pkg.Dir == "" {
		cw.Path = filepath.Join(o.opts.Root, o.opts.ChangelogFile)
	}

	existing, err := os.ReadFile(cw.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cw.Created = true
	case err != nil:
		return cw, fmt.Errorf("reading changelog: %w", err)
	}

	cw.Content = []byte(changelog.Prepend(string(existing), cw.Block, entry.Package))
	return cw, nil
}

// Validate checks every mutation of tx against the current workspace and
// returns a *WriteValidationError listing all problems, or nil.
func (o *Orchestrator) Validate(tx *Transaction) error {
	problems := append([]Problem(nil), tx.problems...)

	for _, mw := range tx.Manifests {
		bump, _ := tx.Plan.Get(mw.Package)
		m, err := workspace.ReadManifest(mw.Path)
		if err != nil {
			problems = append(problems, Problem{Path: mw.Path, Message: "manifest is not readable"})
			continue
		}
		current, err := semver.NewVersion(m.Version)
		if err != nil || !current.Equal(bump.Current) {
			problems = append(problems, Problem{
				Path:    mw.Path,
				Message: fmt.Sprintf("expected version %s, found %s", bump.Current, m.Version),
			})
		}
	}

	for _, cw := range tx.Changelogs {
		if !isDir(filepath.Dir(cw.Path)) {
			problems = append(problems, Problem{Path: cw.Path, Message: "parent directory does not exist"})
		}
	}

	for _, a := range tx.Archives {
		if a.From == "" {
			problems = append(problems, Problem{Message: fmt.Sprintf("changeset %s has no backing file", a.Changeset.ID)})
			continue
		}
		if !exists(a.From) {
			problems = append(problems, Problem{Path: a.From, Message: "changeset file does not exist"})
		}
		if exists(a.To) {
			problems = append(problems, Problem{Path: a.To, Message: "archive target already exists"})
		}
	}

	for _, cs := range tx.Consumed {
		for _, rel := range cs.Releases {
			if _, ok := tx.Plan.Get(rel.Package); !ok {
				problems = append(problems, Problem{
					Path:    cs.Path,
					Message: fmt.Sprintf("changeset %s names %q, which is not being released", cs.ID, rel.Package),
				})
			}
		}
	}

	if o.git != nil && o.opts.Commit {
		if _, err := o.git.WorkspacePrefix(o.opts.Root); err != nil {
			problems = append(problems, Problem{Message: err.Error()})
		}
		for _, tag := range tx.Tags {
			ok, err := o.git.TagExists(tag.Name)
			if err != nil {
				problems = append(problems, Problem{Message: fmt.Sprintf("checking tag %s: %v", tag.Name, err)})
				continue
			}
			if ok {
				problems = append(problems, Problem{Message: fmt.Sprintf("tag %s already exists", tag.Name)})
			}
		}
	}

	if len(problems) > 0 {
		return &WriteValidationError{Problems: problems}
	}
	return nil
}

// Commit performs the writes of a validated transaction, then stages,
// commits and tags through Git when enabled. Git steps run serially.
func (o *Orchestrator) Commit(ctx context.Context, tx *Transaction) (*Outcome, error) {
	outcome := &Outcome{}
	if tx.IsEmpty() {
		return outcome, nil
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	var prefix string
	if o.git != nil && o.opts.Commit {
		p, err := o.git.WorkspacePrefix(o.opts.Root)
		if err != nil {
			return outcome, err
		}
		prefix = p
	}

	for _, mw := range tx.Manifests {
		if err := writeFile(mw.Path, mw.Content); err != nil {
			return outcome, fmt.Errorf("writing manifest for %s: %w", mw.Package, err)
		}
		outcome.Written = append(outcome.Written, mw.Path)
	}
	for _, cw := range tx.Changelogs {
		if err := writeFile(cw.Path, cw.Content); err != nil {
			return outcome, fmt.Errorf("writing changelog for %s: %w", cw.Package, err)
		}
		outcome.Written = append(outcome.Written, cw.Path)
	}
	for _, a := range tx.Archives {
		if err := o.store.Archive(a.Changeset); err != nil {
			return outcome, err
		}
		outcome.Archived = append(outcome.Archived, a.To)
	}

	if o.git == nil || !o.opts.Commit {
		logDebug("[release] files written, git commit disabled")
		return outcome, nil
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	if err := o.git.Stage(tx.RepoPaths(prefix)...); err != nil {
		return outcome, err
	}
	hash, err := o.git.Commit(tx.CommitMessage)
	if err != nil {
		return outcome, err
	}
	outcome.CommitHash = hash

	for _, tag := range tx.Tags {
		if err := o.git.CreateTag(tag.Name, tag.Message); err != nil {
			return outcome, err
		}
		outcome.Tags = append(outcome.Tags, tag.Name)
	}

	logDebug("[release] committed %s with %d tags", hash, len(outcome.Tags))
	return outcome, nil
}

// Run prepares and validates a release and, unless dryRun is set, commits
// it. The transaction is returned in both cases for reporting.
func (o *Orchestrator) Run(ctx context.Context, plan *resolve.Plan, changesets []*changeset.Changeset, dryRun bool) (*Transaction, *Outcome, error) {
	if !dryRun {
		if err := o.CheckWorkingTree(); err != nil {
			return nil, nil, err
		}
	}
	tx, err := o.Prepare(plan, changesets)
	if err != nil {
		return nil, nil, err
	}
	if err := o.Validate(tx); err != nil {
		return tx, nil, err
	}
	if dryRun {
		return tx, nil, nil
	}
	outcome, err := o.Commit(ctx, tx)
	return tx, outcome, err
}

func writeFile(path string, content []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, content, mode)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// debugLogger is a no-op unless SetDebugLogger is called.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for releases.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}
