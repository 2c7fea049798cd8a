package changelog

import (
	"github.com/ariel-frischer/changeset/internal/changeset"
)

// Entry is the changelog content for one released package.
// Sections are ordered major, minor, patch and only non-empty sections
// are present.
type Entry struct {
	Package string
	Version string
	// Sections groups summaries by the severity their changeset declared.
	Sections []Section
	// DependencyUpdates holds one line per internal dependency whose bump
	// forced this release. Only set for cascade-only bumps.
	DependencyUpdates []string
}

// Section is a group of summaries sharing a declared severity.
type Section struct {
	Severity  changeset.Severity
	Summaries []Summary
}

// Summary is a single changeset summary as it appears in a changelog.
type Summary struct {
	Changeset string
	Category  changeset.Category
	Text      string
}

// IsEmpty returns true if the entry has nothing to render.
func (e Entry) IsEmpty() bool {
	return len(e.Sections) == 0 && len(e.DependencyUpdates) == 0
}

// Count returns the number of lines in the entry.
func (e Entry) Count() int {
	n := len(e.DependencyUpdates)
	for _, s := range e.Sections {
		n += len(s.Summaries)
	}
	return n
}

// Title returns the section heading for the severity.
func (s Section) Title() string {
	switch s.Severity {
	case changeset.Major:
		return "Major Changes"
	case changeset.Minor:
		return "Minor Changes"
	default:
		return "Patch Changes"
	}
}
