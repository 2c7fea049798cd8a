// Package resolve turns the workspace graph and the pending changesets into a
// version plan: which packages are released, at what severity, and at what
// target version.
//
// Resolution runs in three passes with no recursion:
//   - direct severities, the max over changesets naming each package
//   - cascade, a single sweep over the graph's topological order raising a
//     dependent when a dependency's target version breaks its requirement
//   - version arithmetic under the configured pre-1.0 policy
//
// The result depends only on the graph and the set of changesets, never on
// the order the changesets were supplied in.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/graph"
	"github.com/ariel-frischer/changeset/internal/version"
)

// Options configures resolution.
type Options struct {
	// MinCascade is the severity forced on a dependent whose requirement a
	// dependency bump breaks. Defaults to patch.
	MinCascade changeset.Severity
	// ZeroPolicy selects how bumps apply to 0.x versions.
	ZeroPolicy version.ZeroPolicy
}

// DefaultOptions returns patch cascades and literal 0.x handling.
func DefaultOptions() Options {
	return Options{MinCascade: changeset.Patch, ZeroPolicy: version.ZeroLiteral}
}

// UnknownReference is a changeset naming a package absent from the graph.
type UnknownReference struct {
	Changeset string
	Package   string
}

// UnknownPackageError lists every unknown package reference found.
type UnknownPackageError struct {
	References []UnknownReference
}

// Error implements the error interface.
func (e *UnknownPackageError) Error() string {
	parts := make([]string, 0, len(e.References))
	for _, r := range e.References {
		parts = append(parts, fmt.Sprintf("%q (changeset %s)", r.Package, r.Changeset))
	}
	return "changesets reference unknown packages: " + strings.Join(parts, ", ")
}

// Packages returns the distinct unknown package names, sorted.
func (e *UnknownPackageError) Packages() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range e.References {
		if !seen[r.Package] {
			seen[r.Package] = true
			names = append(names, r.Package)
		}
	}
	sort.Strings(names)
	return names
}

// Resolver computes version plans.
type Resolver struct {
	opts Options
}

// New returns a resolver. Zero-valued options fall back to the defaults.
func New(opts Options) *Resolver {
	if opts.MinCascade == changeset.None {
		opts.MinCascade = changeset.Patch
	}
	if opts.ZeroPolicy == "" {
		opts.ZeroPolicy = version.ZeroLiteral
	}
	return &Resolver{opts: opts}
}

// Resolve computes the plan. It fails without a partial plan if any changeset
// names a package that is not in g.
func (r *Resolver) Resolve(g *graph.Graph, changesets []*changeset.Changeset) (*Plan, error) {
	direct, err := DirectSeverities(g, changesets)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]changeset.Severity, len(direct))
	for name, sev := range direct {
		resolved[name] = sev
	}
	targets := make(map[string]*semver.Version, len(direct))
	causes := make(map[string][]string)

	// Dependencies come before dependents in Order, so by the time a package
	// is visited every dependency's severity is final.
	for _, name := range g.Order() {
		pkg, _ := g.Package(name)
		for _, edge := range pkg.Edges {
			if !edge.Kind.Cascades() {
				continue
			}
			target, ok := targets[edge.To]
			if !ok || edge.Requirement.Satisfied(target) {
				continue
			}
			resolved[name] = changeset.Max(resolved[name], r.opts.MinCascade)
			causes[name] = append(causes[name], edge.To)
		}
		if sev := resolved[name]; sev != changeset.None {
			targets[name] = version.Bump(pkg.Version, sev, r.opts.ZeroPolicy)
		}
	}

	plan := &Plan{bumps: make(map[string]*Bump, len(targets))}
	for name, target := range targets {
		pkg, _ := g.Package(name)
		cascadedFrom := causes[name]
		sort.Strings(cascadedFrom)
		plan.bumps[name] = &Bump{
			Package:      name,
			Current:      pkg.Version,
			Target:       target,
			Severity:     resolved[name],
			Direct:       direct[name],
			CascadedFrom: cascadedFrom,
		}
	}

	logDebug("[resolve] %d changesets -> %d releases", len(changesets), plan.Len())
	return plan, nil
}

// DirectSeverities returns, for every package named by a changeset, the max
// severity declared for it. Unknown package names are collected and reported
// together.
func DirectSeverities(g *graph.Graph, changesets []*changeset.Changeset) (map[string]changeset.Severity, error) {
	direct := make(map[string]changeset.Severity)
	var unknown []UnknownReference

	for _, cs := range changesets {
		for _, rel := range cs.Releases {
			if !g.Has(rel.Package) {
				unknown = append(unknown, UnknownReference{Changeset: cs.ID, Package: rel.Package})
				continue
			}
			direct[rel.Package] = changeset.Max(direct[rel.Package], rel.Severity)
		}
	}

	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool {
			if unknown[i].Package != unknown[j].Package {
				return unknown[i].Package < unknown[j].Package
			}
			return unknown[i].Changeset < unknown[j].Changeset
		})
		return nil, &UnknownPackageError{References: unknown}
	}
	return direct, nil
}

// debugLogger is a no-op unless SetDebugLogger is called.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for resolution.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}
