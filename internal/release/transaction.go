package release

import (
	"path"
	"path/filepath"
	"sort"

	"github.com/ariel-frischer/changeset/internal/changelog"
	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/resolve"
)

// RequirementUpdate is a dependency requirement rewritten so it accepts the
// dependency's new version.
type RequirementUpdate struct {
	Dependency string
	From       string
	To         string
}

// ManifestWrite is the new content of one package manifest.
type ManifestWrite struct {
	Package      string
	Path         string
	FromVersion  string
	ToVersion    string
	Requirements []RequirementUpdate
	Content      []byte
}

// ChangelogWrite is the new content of one package changelog.
type ChangelogWrite struct {
	Package string
	Path    string
	// Block is the rendered release section inserted into the file.
	Block   string
	Content []byte
	// Created is set when the changelog file does not exist yet.
	Created bool
}

// ArchiveMove moves a consumed changeset into the archive directory.
type ArchiveMove struct {
	Changeset *changeset.Changeset
	From      string
	To        string
}

// Tag is a tag created for one released package.
type Tag struct {
	Name    string
	Package string
	Version string
	Message string
}

// Transaction is the full set of mutations a release performs, computed
// up front so every one of them can be validated before the first write.
type Transaction struct {
	Plan          *resolve.Plan
	Entries       []changelog.Entry
	Manifests     []ManifestWrite
	Changelogs    []ChangelogWrite
	Archives      []ArchiveMove
	Tags          []Tag
	CommitMessage string
	// Consumed are the changesets this release uses up.
	Consumed []*changeset.Changeset

	root     string
	problems []Problem
}

// IsEmpty reports whether the transaction releases nothing.
func (tx *Transaction) IsEmpty() bool {
	return tx.Plan == nil || tx.Plan.IsEmpty()
}

// Paths returns every file the transaction touches, relative to the
// workspace root and slash-separated, sorted.
func (tx *Transaction) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		rel := p
		if filepath.IsAbs(p) && tx.root != "" {
			if r, err := filepath.Rel(tx.root, p); err == nil {
				rel = r
			}
		}
		rel = filepath.ToSlash(rel)
		if !seen[rel] {
			seen[rel] = true
			paths = append(paths, rel)
		}
	}

	for _, m := range tx.Manifests {
		add(m.Path)
	}
	for _, c := range tx.Changelogs {
		add(c.Path)
	}
	for _, a := range tx.Archives {
		add(a.From)
		add(a.To)
	}
	sort.Strings(paths)
	return paths
}

// RepoPaths returns Paths joined onto prefix, the workspace root relative
// to the repository root.
func (tx *Transaction) RepoPaths(prefix string) []string {
	paths := tx.Paths()
	if prefix == "" {
		return paths
	}
	for i, p := range paths {
		paths[i] = path.Join(prefix, p)
	}
	return paths
}
