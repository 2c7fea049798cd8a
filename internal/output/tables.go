package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/resolve"
	"github.com/ariel-frischer/changeset/internal/verify"
)

// TableOptions controls table rendering.
type TableOptions struct {
	// Plain renders ASCII borders, for pipes and CI logs.
	Plain bool
}

const summaryWidth = 60

func newTable(w io.Writer, opts TableOptions) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if opts.Plain {
		tw.SetStyle(table.StyleDefault)
	} else {
		tw.SetStyle(table.StyleRounded)
		tw.SetAllowedRowLength(GetTerminalWidth())
	}
	return tw
}

// RenderChangesets writes the pending changesets in creation order.
func RenderChangesets(w io.Writer, changesets []*changeset.Changeset, opts TableOptions) {
	tw := newTable(w, opts)
	tw.AppendHeader(table.Row{"Changeset", "Releases", "Category", "Summary"})
	for _, cs := range changesets {
		releases := make([]string, 0, len(cs.Releases))
		for _, r := range cs.Releases {
			releases = append(releases, r.Package+": "+r.Severity.String())
		}
		tw.AppendRow(table.Row{cs.ID, strings.Join(releases, "\n"), string(cs.Category), firstLine(cs.Summary)})
	}
	tw.Render()
}

// RenderPlan writes one row per released package with the reason for its bump.
func RenderPlan(w io.Writer, plan *resolve.Plan, opts TableOptions) {
	tw := newTable(w, opts)
	tw.AppendHeader(table.Row{"Package", "Current", "Next", "Bump", "Reason"})
	for _, b := range plan.Bumps() {
		tw.AppendRow(table.Row{b.Package, b.Current.String(), b.Target.String(), b.Severity.String(), BumpReason(b)})
	}
	tw.Render()
}

// BumpReason describes why a package is released.
func BumpReason(b *resolve.Bump) string {
	var reasons []string
	if !b.CascadeOnly() {
		reasons = append(reasons, "changeset ("+b.Direct.String()+")")
	}
	if b.Cascaded() {
		reasons = append(reasons, "dependency "+strings.Join(b.CascadedFrom, ", "))
	}
	return strings.Join(reasons, " + ")
}

// RenderVerifyResult writes a per-package coverage table followed by
// project-level and ignored file counts.
func RenderVerifyResult(w io.Writer, res *verify.Result, opts TableOptions) {
	if len(res.Affected) > 0 {
		covered := make(map[string]bool, len(res.Covered))
		for _, name := range res.Covered {
			covered[name] = true
		}

		tw := newTable(w, opts)
		tw.AppendHeader(table.Row{"Package", "Changed files", "Changeset"})
		for _, name := range res.Affected {
			status := "missing"
			if covered[name] {
				status = "yes"
			}
			tw.AppendRow(table.Row{name, len(res.PackageFiles[name]), status})
		}
		tw.Render()
	}

	if n := len(res.ProjectFiles); n > 0 {
		fmt.Fprintf(w, "%d project-level file(s) changed outside any package\n", n)
	}
	if n := len(res.IgnoredFiles); n > 0 {
		fmt.Fprintf(w, "%d file(s) ignored\n", n)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > summaryWidth {
		s = string(r[:summaryWidth-3]) + "..."
	}
	return s
}
