package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/graph"
	"github.com/ariel-frischer/changeset/internal/version"
)

func dep(name, req string, kind graph.DependencyKind) graph.DependencySpec {
	return graph.DependencySpec{Name: name, Requirement: req, Kind: kind}
}

func cs(id string, releases ...changeset.Release) *changeset.Changeset {
	return &changeset.Changeset{ID: id, Releases: releases, Summary: "summary " + id, Category: changeset.CategoryChanged}
}

func rel(pkg string, sev changeset.Severity) changeset.Release {
	return changeset.Release{Package: pkg, Severity: sev}
}

// workspace: app -> base (runtime ^1.0.0), tool -> base (dev ^1.0.0),
// plugin -> app (runtime =1.0.0), cli -> app (build ^1.0.0)
func fixture() *graph.Graph {
	return graph.MustBuild([]graph.Descriptor{
		{Name: "base", Version: "1.0.0"},
		{Name: "app", Version: "1.0.0", Dependencies: []graph.DependencySpec{dep("base", "^1.0.0", graph.KindRuntime)}},
		{Name: "tool", Version: "3.2.1", Dependencies: []graph.DependencySpec{dep("base", "^1.0.0", graph.KindDev)}},
		{Name: "plugin", Version: "0.2.0", Dependencies: []graph.DependencySpec{dep("app", "=1.0.0", graph.KindRuntime)}},
		{Name: "cli", Version: "2.0.0", Dependencies: []graph.DependencySpec{dep("app", "^1.0.0", graph.KindBuild)}},
		{Name: "loose", Version: "1.0.0", Dependencies: []graph.DependencySpec{dep("base", "", graph.KindRuntime)}},
	})
}

type want struct {
	target   string
	severity changeset.Severity
	direct   changeset.Severity
	causes   []string
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		changesets []*changeset.Changeset
		opts       Options
		want       map[string]want
	}{
		"no changesets": {
			want: map[string]want{},
		},
		"major on base cascades to runtime dependent": {
			changesets: []*changeset.Changeset{cs("a", rel("base", changeset.Major))},
			want: map[string]want{
				"base":   {target: "2.0.0", severity: changeset.Major, direct: changeset.Major},
				"app":    {target: "1.0.1", severity: changeset.Patch, causes: []string{"base"}},
				"plugin": {target: "0.2.1", severity: changeset.Patch, causes: []string{"app"}},
			},
		},
		"minor on base keeps caret requirement satisfied": {
			changesets: []*changeset.Changeset{cs("a", rel("base", changeset.Minor))},
			want: map[string]want{
				"base": {target: "1.1.0", severity: changeset.Minor, direct: changeset.Minor},
			},
		},
		"exact requirement breaks on patch": {
			changesets: []*changeset.Changeset{cs("a", rel("app", changeset.Patch))},
			want: map[string]want{
				"app":    {target: "1.0.1", severity: changeset.Patch, direct: changeset.Patch},
				"plugin": {target: "0.2.1", severity: changeset.Patch, causes: []string{"app"}},
			},
		},
		"build edge cascades": {
			changesets: []*changeset.Changeset{cs("a", rel("app", changeset.Major))},
			want: map[string]want{
				"app":    {target: "2.0.0", severity: changeset.Major, direct: changeset.Major},
				"cli":    {target: "2.0.1", severity: changeset.Patch, causes: []string{"app"}},
				"plugin": {target: "0.2.1", severity: changeset.Patch, causes: []string{"app"}},
			},
		},
		"max severity across changesets": {
			changesets: []*changeset.Changeset{
				cs("a", rel("tool", changeset.Patch)),
				cs("b", rel("tool", changeset.Minor)),
				cs("c", rel("tool", changeset.Patch)),
			},
			want: map[string]want{
				"tool": {target: "3.3.0", severity: changeset.Minor, direct: changeset.Minor},
			},
		},
		"direct severity above cascade wins": {
			changesets: []*changeset.Changeset{
				cs("a", rel("base", changeset.Major), rel("app", changeset.Minor)),
			},
			want: map[string]want{
				"base":   {target: "2.0.0", severity: changeset.Major, direct: changeset.Major},
				"app":    {target: "1.1.0", severity: changeset.Minor, direct: changeset.Minor, causes: []string{"base"}},
				"plugin": {target: "0.2.1", severity: changeset.Patch, causes: []string{"app"}},
			},
		},
		"min cascade minor": {
			changesets: []*changeset.Changeset{cs("a", rel("base", changeset.Major))},
			opts:       Options{MinCascade: changeset.Minor},
			want: map[string]want{
				"base":   {target: "2.0.0", severity: changeset.Major, direct: changeset.Major},
				"app":    {target: "1.1.0", severity: changeset.Minor, causes: []string{"base"}},
				"plugin": {target: "0.3.0", severity: changeset.Minor, causes: []string{"app"}},
			},
		},
		"zero shift policy": {
			changesets: []*changeset.Changeset{cs("a", rel("plugin", changeset.Major))},
			opts:       Options{ZeroPolicy: version.ZeroShift},
			want: map[string]want{
				"plugin": {target: "0.3.0", severity: changeset.Major, direct: changeset.Major},
			},
		},
		"zero literal policy": {
			changesets: []*changeset.Changeset{cs("a", rel("plugin", changeset.Major))},
			want: map[string]want{
				"plugin": {target: "1.0.0", severity: changeset.Major, direct: changeset.Major},
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			plan, err := New(tt.opts).Resolve(fixture(), tt.changesets)
			require.NoError(t, err)

			assert.Equal(t, len(tt.want), plan.Len(), "released packages: %v", plan.Names())
			for pkg, w := range tt.want {
				b, ok := plan.Get(pkg)
				require.True(t, ok, "expected %s in plan", pkg)
				assert.Equal(t, w.target, b.Target.String(), pkg)
				assert.Equal(t, w.severity, b.Severity, pkg)
				assert.Equal(t, w.direct, b.Direct, pkg)
				assert.Equal(t, w.causes, b.CascadedFrom, pkg)
				assert.Equal(t, w.direct == changeset.None, b.CascadeOnly(), pkg)
			}
		})
	}
}

func TestResolve_DevAndEmptyRequirementNeverCascade(t *testing.T) {
	t.Parallel()

	plan, err := New(DefaultOptions()).Resolve(fixture(), []*changeset.Changeset{cs("a", rel("base", changeset.Major))})
	require.NoError(t, err)

	_, ok := plan.Get("tool")
	assert.False(t, ok, "dev dependents are not released")
	_, ok = plan.Get("loose")
	assert.False(t, ok, "empty requirement accepts any version")
}

func TestResolve_UnknownPackage(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultOptions()).Resolve(fixture(), []*changeset.Changeset{
		cs("b", rel("ghost", changeset.Patch)),
		cs("a", rel("base", changeset.Major), rel("phantom", changeset.Minor)),
		cs("c", rel("ghost", changeset.Minor)),
	})
	require.Error(t, err)

	var unknown *UnknownPackageError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []UnknownReference{
		{Changeset: "b", Package: "ghost"},
		{Changeset: "c", Package: "ghost"},
		{Changeset: "a", Package: "phantom"},
	}, unknown.References)
	assert.Equal(t, []string{"ghost", "phantom"}, unknown.Packages())
	assert.Contains(t, err.Error(), `"phantom" (changeset a)`)
}

func TestResolve_OrderIndependent(t *testing.T) {
	t.Parallel()

	changesets := []*changeset.Changeset{
		cs("a", rel("base", changeset.Major)),
		cs("b", rel("app", changeset.Minor), rel("tool", changeset.Patch)),
		cs("c", rel("cli", changeset.Patch)),
		cs("d", rel("app", changeset.Patch)),
	}
	resolver := New(DefaultOptions())

	first, err := resolver.Resolve(fixture(), changesets)
	require.NoError(t, err)

	permutations := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range permutations {
		shuffled := make([]*changeset.Changeset, len(perm))
		for i, idx := range perm {
			shuffled[i] = changesets[idx]
		}
		plan, err := resolver.Resolve(fixture(), shuffled)
		require.NoError(t, err)
		assert.True(t, first.Equal(plan), "permutation %v changed the plan", perm)
	}

	again, err := resolver.Resolve(fixture(), changesets)
	require.NoError(t, err)
	assert.True(t, first.Equal(again))
}

func TestResolve_Monotonic(t *testing.T) {
	t.Parallel()

	resolver := New(DefaultOptions())
	base := []*changeset.Changeset{
		cs("a", rel("app", changeset.Patch)),
	}
	extra := []*changeset.Changeset{
		cs("b", rel("base", changeset.Major)),
		cs("c", rel("plugin", changeset.Minor)),
		cs("d", rel("app", changeset.Patch)),
	}

	before, err := resolver.Resolve(fixture(), base)
	require.NoError(t, err)

	for i := range extra {
		after, err := resolver.Resolve(fixture(), append(append([]*changeset.Changeset{}, base...), extra[:i+1]...))
		require.NoError(t, err)

		for _, b := range before.Bumps() {
			a, ok := after.Get(b.Package)
			require.True(t, ok, "%s dropped from plan", b.Package)
			assert.GreaterOrEqual(t, int(a.Severity), int(b.Severity), b.Package)
		}
		before = after
	}
}

func TestPlan_Names(t *testing.T) {
	t.Parallel()

	plan, err := New(DefaultOptions()).Resolve(fixture(), []*changeset.Changeset{cs("a", rel("base", changeset.Major))})
	require.NoError(t, err)

	assert.Equal(t, []string{"app", "base", "plugin"}, plan.Names())
	assert.False(t, plan.IsEmpty())

	bumps := plan.Bumps()
	require.Len(t, bumps, 3)
	assert.Equal(t, "app", bumps[0].Package)
	assert.True(t, bumps[0].Cascaded())
	assert.Equal(t, "1.0.0", bumps[0].Current.String())
}
