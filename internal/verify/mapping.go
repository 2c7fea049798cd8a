package verify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ariel-frischer/changeset/internal/graph"
)

// Mapping is the result of assigning changed paths to packages.
type Mapping struct {
	// PackageFiles maps each affected package to its changed paths.
	PackageFiles map[string][]string
	// ProjectFiles are paths inside no package directory.
	ProjectFiles []string
	// IgnoredFiles matched an ignore glob.
	IgnoredFiles []string
}

// Affected returns the names of packages with at least one changed path,
// sorted.
func (m *Mapping) Affected() []string {
	var names []string
	for name := range m.PackageFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mapper assigns workspace-relative paths to the deepest package whose
// directory contains them.
type Mapper struct {
	packages []*graph.Package // deepest directory first
	ignore   []string
}

// NewMapper returns a mapper over the packages of g. ignore holds doublestar
// globs matched against slash-separated paths relative to the workspace root.
func NewMapper(g *graph.Graph, ignore []string) (*Mapper, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	packages := g.Packages()
	sort.SliceStable(packages, func(i, j int) bool {
		di, dj := depth(packages[i].Dir), depth(packages[j].Dir)
		if di != dj {
			return di > dj
		}
		return packages[i].Name < packages[j].Name
	})

	return &Mapper{packages: packages, ignore: ignore}, nil
}

// Map assigns every path to a package, the project, or the ignored set.
func (m *Mapper) Map(paths []string) *Mapping {
	mapping := &Mapping{PackageFiles: make(map[string][]string)}

	for _, p := range paths {
		if m.Ignored(p) {
			mapping.IgnoredFiles = append(mapping.IgnoredFiles, p)
			continue
		}
		if owner := m.Owner(p); owner != "" {
			mapping.PackageFiles[owner] = append(mapping.PackageFiles[owner], p)
			continue
		}
		mapping.ProjectFiles = append(mapping.ProjectFiles, p)
	}

	return mapping
}

// Ignored reports whether p matches any ignore glob.
func (m *Mapper) Ignored(p string) bool {
	for _, pattern := range m.ignore {
		// patterns were validated in NewMapper
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// Owner returns the package owning p, or "" if no package directory
// contains it. A package at the workspace root owns every path not claimed
// by a deeper package.
func (m *Mapper) Owner(p string) string {
	for _, pkg := range m.packages {
		if contains(pkg.Dir, p) {
			return pkg.Name
		}
	}
	return ""
}

func contains(dir, p string) bool {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || dir == "." {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func depth(dir string) int {
	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
