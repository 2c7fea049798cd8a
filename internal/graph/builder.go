package graph

import (
	"fmt"
	"sort"

	"github.com/ariel-frischer/changeset/internal/version"
)

// DependencySpec is a declared dependency as read from a manifest.
type DependencySpec struct {
	Name        string
	Requirement string
	Kind        DependencyKind
}

// Descriptor is the manifest data needed to place a package in the graph.
type Descriptor struct {
	Name         string
	Version      string
	Dir          string
	ManifestPath string
	Dependencies []DependencySpec
}

func (d Descriptor) location() string {
	if d.ManifestPath != "" {
		return d.ManifestPath
	}
	if d.Dir != "" {
		return d.Dir
	}
	return "<unknown>"
}

// Build constructs and validates a workspace graph. Dependencies on names
// outside the descriptor set are external and do not become edges.
//
// Build fails closed: on any error no graph is returned.
func Build(descriptors []Descriptor) (*Graph, error) {
	g := &Graph{
		packages:   make(map[string]*Package, len(descriptors)),
		dependents: make(map[string][]*Edge),
	}
	locations := make(map[string]string, len(descriptors))

	for _, d := range descriptors {
		if prev, exists := locations[d.Name]; exists {
			return nil, &DuplicatePackageError{Name: d.Name, First: prev, Second: d.location()}
		}
		locations[d.Name] = d.location()

		v, err := version.Parse(d.Version)
		if err != nil {
			return nil, &InvalidManifestError{Package: d.Name, Field: "version", Err: err}
		}
		g.packages[d.Name] = &Package{
			Name:         d.Name,
			Version:      v,
			Dir:          d.Dir,
			ManifestPath: d.ManifestPath,
		}
		g.names = append(g.names, d.Name)
	}
	sort.Strings(g.names)

	for _, d := range descriptors {
		pkg := g.packages[d.Name]
		for _, dep := range d.Dependencies {
			if !g.Has(dep.Name) {
				continue
			}
			req, err := version.ParseRequirement(dep.Requirement)
			if err != nil {
				return nil, &InvalidManifestError{Package: d.Name, Field: "dependencies." + dep.Name, Err: err}
			}
			kind := dep.Kind
			if kind == "" {
				kind = KindRuntime
			}
			edge := &Edge{From: d.Name, To: dep.Name, Requirement: req, Kind: kind}
			pkg.Edges = append(pkg.Edges, edge)
			g.dependents[dep.Name] = append(g.dependents[dep.Name], edge)
		}
	}
	for name := range g.dependents {
		sortEdgesByFrom(g.dependents[name])
	}

	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}
	g.order = order

	logDebug("[graph] built workspace graph with %d packages", len(g.names))
	return g, nil
}

// topoSort runs Kahn's algorithm over cascading edges, placing dependencies
// before dependents. Ready packages are taken in name order each round.
// A non-empty residual means a cycle.
func topoSort(g *Graph) ([]string, error) {
	pending := make(map[string]int, len(g.names))
	for _, name := range g.names {
		for _, e := range g.packages[name].Edges {
			if e.Kind.Cascades() {
				pending[name]++
			}
		}
	}

	var ready []string
	for _, name := range g.names {
		if pending[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.names))
	for len(ready) > 0 {
		var next []string
		for _, name := range ready {
			order = append(order, name)
			for _, e := range g.dependents[name] {
				if !e.Kind.Cascades() {
					continue
				}
				pending[e.From]--
				if pending[e.From] == 0 {
					next = append(next, e.From)
				}
			}
		}
		sort.Strings(next)
		ready = next
	}

	if len(order) == len(g.names) {
		return order, nil
	}

	var residual []string
	for _, name := range g.names {
		if pending[name] > 0 {
			residual = append(residual, name)
		}
	}
	return nil, &CyclicDependencyError{Packages: residual, Cycle: findCycle(g, pending)}
}

// findCycle walks from the first residual package along residual dependencies
// until a package repeats. Every residual package has at least one residual
// dependency, so the walk always closes a cycle.
func findCycle(g *Graph, pending map[string]int) []string {
	var start string
	for _, name := range g.names {
		if pending[name] > 0 {
			start = name
			break
		}
	}
	if start == "" {
		return nil
	}

	position := make(map[string]int)
	var path []string
	current := start
	for {
		if idx, seen := position[current]; seen {
			return append(path[idx:], current)
		}
		position[current] = len(path)
		path = append(path, current)

		next := ""
		for _, e := range g.packages[current].Edges {
			if e.Kind.Cascades() && pending[e.To] > 0 {
				next = e.To
				break
			}
		}
		if next == "" {
			return nil
		}
		current = next
	}
}

// debugLogger is a no-op unless SetDebugLogger is called.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for graph construction.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// MustBuild is Build for tests and fixtures; it panics on error.
func MustBuild(descriptors []Descriptor) *Graph {
	g, err := Build(descriptors)
	if err != nil {
		panic(fmt.Sprintf("graph.MustBuild: %v", err))
	}
	return g
}
