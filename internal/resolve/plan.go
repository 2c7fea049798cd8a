package resolve

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/ariel-frischer/changeset/internal/changeset"
)

// Bump is the resolved release of a single package.
type Bump struct {
	Package string
	Current *semver.Version
	Target  *semver.Version
	// Severity is the resolved severity: the max of Direct and any cascade.
	Severity changeset.Severity
	// Direct is the max severity declared by changesets, None if only cascaded.
	Direct changeset.Severity
	// CascadedFrom lists dependencies whose bump broke this package's
	// requirement on them, sorted.
	CascadedFrom []string
}

// Cascaded reports whether a cascade contributed to (or caused) the bump.
func (b *Bump) Cascaded() bool {
	return len(b.CascadedFrom) > 0
}

// CascadeOnly reports whether no changeset named the package directly.
func (b *Bump) CascadeOnly() bool {
	return b.Direct == changeset.None
}

// Plan maps package names to their resolved bumps. It only contains
// packages that will be released.
type Plan struct {
	bumps map[string]*Bump
}

// Get returns the bump for name.
func (p *Plan) Get(name string) (*Bump, bool) {
	b, ok := p.bumps[name]
	return b, ok
}

// Len returns the number of packages being released.
func (p *Plan) Len() int {
	return len(p.bumps)
}

// IsEmpty reports whether nothing will be released.
func (p *Plan) IsEmpty() bool {
	return len(p.bumps) == 0
}

// Names returns the released package names sorted lexically.
func (p *Plan) Names() []string {
	names := make([]string, 0, len(p.bumps))
	for name := range p.bumps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bumps returns the bumps sorted by package name.
func (p *Plan) Bumps() []*Bump {
	names := p.Names()
	bumps := make([]*Bump, 0, len(names))
	for _, name := range names {
		bumps = append(bumps, p.bumps[name])
	}
	return bumps
}

// Equal reports whether two plans release the same packages at the same
// severities and versions.
func (p *Plan) Equal(other *Plan) bool {
	if p.Len() != other.Len() {
		return false
	}
	for name, a := range p.bumps {
		b, ok := other.bumps[name]
		if !ok {
			return false
		}
		if a.Severity != b.Severity || a.Direct != b.Direct || !a.Target.Equal(b.Target) {
			return false
		}
		if len(a.CascadedFrom) != len(b.CascadedFrom) {
			return false
		}
		for i := range a.CascadedFrom {
			if a.CascadedFrom[i] != b.CascadedFrom[i] {
				return false
			}
		}
	}
	return true
}
