// Package graph models the workspace as a directed graph of packages whose
// edges are internal dependencies. Construction validates name uniqueness and
// rejects cycles among runtime and build edges; a built Graph is read-only.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ariel-frischer/changeset/internal/version"
)

// DependencyKind classifies an internal dependency edge.
type DependencyKind string

const (
	KindRuntime DependencyKind = "runtime"
	KindBuild   DependencyKind = "build"
	KindDev     DependencyKind = "dev"
)

// ParseDependencyKind parses a kind name; empty yields KindRuntime.
func ParseDependencyKind(s string) (DependencyKind, error) {
	switch DependencyKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindRuntime:
		return KindRuntime, nil
	case KindBuild:
		return KindBuild, nil
	case KindDev:
		return KindDev, nil
	default:
		return "", fmt.Errorf("invalid dependency kind %q (valid: runtime, build, dev)", s)
	}
}

// Cascades reports whether a bump along an edge of this kind can force a
// release of the dependent. Dev-only edges never do.
func (k DependencyKind) Cascades() bool {
	return k != KindDev
}

// Edge is an internal dependency of From on To.
type Edge struct {
	From        string
	To          string
	Requirement version.Requirement
	Kind        DependencyKind
}

// Package is a node of the workspace graph.
type Package struct {
	Name    string
	Version *semver.Version
	// Dir is the manifest directory; every file under it belongs to the package
	// unless a deeper package claims it.
	Dir          string
	ManifestPath string
	// Edges are the package's outgoing internal dependencies in declaration order.
	Edges []*Edge
}

// Graph is an immutable, validated workspace graph.
type Graph struct {
	packages   map[string]*Package
	names      []string
	order      []string
	dependents map[string][]*Edge
}

// Package returns the named package.
func (g *Graph) Package(name string) (*Package, bool) {
	p, ok := g.packages[name]
	return p, ok
}

// Has reports whether the graph contains name.
func (g *Graph) Has(name string) bool {
	_, ok := g.packages[name]
	return ok
}

// Len returns the number of packages.
func (g *Graph) Len() int {
	return len(g.names)
}

// Names returns every package name sorted lexically.
func (g *Graph) Names() []string {
	return append([]string(nil), g.names...)
}

// Packages returns every package sorted by name.
func (g *Graph) Packages() []*Package {
	pkgs := make([]*Package, 0, len(g.names))
	for _, name := range g.names {
		pkgs = append(pkgs, g.packages[name])
	}
	return pkgs
}

// Order returns package names in topological order over runtime and build
// edges: every package appears after all of its dependencies. Ties are broken
// by name so the order is deterministic.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// Dependents returns the edges pointing at name (of every kind), sorted by
// the dependent's name.
func (g *Graph) Dependents(name string) []*Edge {
	return append([]*Edge(nil), g.dependents[name]...)
}

// String renders a compact adjacency listing, mainly for debug output.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, name := range g.order {
		p := g.packages[name]
		fmt.Fprintf(&sb, "%s@%s", p.Name, p.Version)
		for i, e := range p.Edges {
			if i == 0 {
				sb.WriteString(" ->")
			}
			fmt.Fprintf(&sb, " %s(%s %s)", e.To, e.Kind, e.Requirement)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func sortEdgesByFrom(edges []*Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].From < edges[j].From
	})
}
