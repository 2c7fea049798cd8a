package changelog

import (
	"fmt"
	"sort"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/resolve"
)

// sectionOrder is the order sections appear in an entry.
var sectionOrder = []changeset.Severity{changeset.Major, changeset.Minor, changeset.Patch}

// Aggregate builds one entry per package in plan, sorted by package name.
//
// A changeset contributes its summary to every planned package it names,
// in the section of the severity it declared for that package. Summaries
// within a section keep changeset creation order. Packages released only
// because a dependency bump broke their requirement get dependency update
// lines instead of summaries.
func Aggregate(plan *resolve.Plan, changesets []*changeset.Changeset) []Entry {
	ordered := append([]*changeset.Changeset(nil), changesets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Ordinal != ordered[j].Ordinal {
			return ordered[i].Ordinal < ordered[j].Ordinal
		}
		return ordered[i].ID < ordered[j].ID
	})

	entries := make([]Entry, 0, plan.Len())
	for _, bump := range plan.Bumps() {
		entry := Entry{Package: bump.Package, Version: bump.Target.String()}

		bySeverity := make(map[changeset.Severity][]Summary)
		for _, cs := range ordered {
			sev := cs.SeverityFor(bump.Package)
			if sev == changeset.None {
				continue
			}
			bySeverity[sev] = append(bySeverity[sev], Summary{
				Changeset: cs.ID,
				Category:  cs.Category,
				Text:      cs.Summary,
			})
		}
		for _, sev := range sectionOrder {
			if summaries := bySeverity[sev]; len(summaries) > 0 {
				entry.Sections = append(entry.Sections, Section{Severity: sev, Summaries: summaries})
			}
		}

		if bump.CascadeOnly() {
			for _, dep := range bump.CascadedFrom {
				target := "?"
				if d, ok := plan.Get(dep); ok {
					target = d.Target.String()
				}
				entry.DependencyUpdates = append(entry.DependencyUpdates,
					fmt.Sprintf("Updated dependency `%s` to `%s`", dep, target))
			}
		}

		entries = append(entries, entry)
	}
	return entries
}
