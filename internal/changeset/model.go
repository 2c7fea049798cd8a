package changeset

import (
	"fmt"
	"strings"
)

// Severity is a bump severity. The zero value means "no bump".
type Severity int

const (
	None Severity = iota
	Patch
	Minor
	Major
)

// String returns the literal token used in changeset files.
func (s Severity) String() string {
	switch s {
	case Patch:
		return "patch"
	case Minor:
		return "minor"
	case Major:
		return "major"
	default:
		return "none"
	}
}

// ParseSeverity parses one of the literal tokens patch, minor or major.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patch":
		return Patch, nil
	case "minor":
		return Minor, nil
	case "major":
		return Major, nil
	default:
		return None, fmt.Errorf("invalid severity %q (valid: patch, minor, major)", s)
	}
}

// Max combines two severities.
func Max(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

// Category is the Keep a Changelog section a changeset belongs to.
type Category string

const (
	CategoryAdded      Category = "added"
	CategoryChanged    Category = "changed"
	CategoryDeprecated Category = "deprecated"
	CategoryRemoved    Category = "removed"
	CategoryFixed      Category = "fixed"
	CategorySecurity   Category = "security"
)

// ValidCategories returns the categories in Keep a Changelog order.
func ValidCategories() []Category {
	return []Category{
		CategoryAdded, CategoryChanged, CategoryDeprecated,
		CategoryRemoved, CategoryFixed, CategorySecurity,
	}
}

// ParseCategory parses a category name. An empty string yields CategoryChanged.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryChanged, nil
	}
	for _, c := range ValidCategories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}

// Title returns the section heading for the category.
func (c Category) Title() string {
	if c == "" {
		return "Changed"
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Release declares that a package should be released with a severity.
type Release struct {
	Package  string
	Severity Severity
}

// Changeset is a contributor-authored intent-to-release record.
type Changeset struct {
	// ID is the stable identifier, the file name without extension.
	ID string
	// Releases preserves declaration order from the front matter.
	Releases []Release
	Summary  string
	Category Category
	// Ordinal is the position of the changeset in creation order within a load.
	Ordinal int
	// Path is the file the changeset was read from, empty for in-memory records.
	Path string
}

// SeverityFor returns the severity the changeset declares for pkg, or None.
func (c *Changeset) SeverityFor(pkg string) Severity {
	for _, r := range c.Releases {
		if r.Package == pkg {
			return r.Severity
		}
	}
	return None
}

// Names reports whether the changeset names pkg.
func (c *Changeset) Names(pkg string) bool {
	return c.SeverityFor(pkg) != None
}

// Packages returns the package names in declaration order.
func (c *Changeset) Packages() []string {
	names := make([]string, 0, len(c.Releases))
	for _, r := range c.Releases {
		names = append(names, r.Package)
	}
	return names
}
