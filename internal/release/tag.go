package release

import (
	"github.com/ariel-frischer/changeset/internal/graph"
)

// TagName returns the tag for a released package: "v{version}" in a
// single-package workspace, "{package}@{version}" otherwise.
func TagName(g *graph.Graph, pkg, version string) string {
	if g.Len() == 1 {
		return "v" + version
	}
	return pkg + "@" + version
}
