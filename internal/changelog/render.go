package changelog

import (
	"fmt"
	"io"
	"strings"

	"github.com/ariel-frischer/changeset/internal/changeset"
)

// DependenciesTitle is the heading of the dependency update section.
const DependenciesTitle = "Dependencies"

// RenderMarkdown writes a Keep a Changelog release block for the entry:
// a version heading followed by one section per severity.
// See https://keepachangelog.com/en/1.1.0/.
//
// The function is idempotent - given the same input, it produces identical output.
func RenderMarkdown(e *Entry, date string, w io.Writer) error {
	if _, err := w.Write([]byte(formatVersionHeader(e.Version, date) + "\n")); err != nil {
		return fmt.Errorf("rendering header: %w", err)
	}

	for _, s := range e.Sections {
		lines := make([]string, 0, len(s.Summaries))
		for _, sum := range s.Summaries {
			lines = append(lines, formatSummary(sum))
		}
		if err := renderSection(s.Title(), lines, w); err != nil {
			return fmt.Errorf("rendering %s: %w", s.Title(), err)
		}
	}

	if len(e.DependencyUpdates) > 0 {
		if err := renderSection(DependenciesTitle, e.DependencyUpdates, w); err != nil {
			return fmt.Errorf("rendering dependencies: %w", err)
		}
	}

	return nil
}

// Render is a convenience function that renders to a string.
func Render(e Entry, date string) string {
	var b strings.Builder
	// strings.Builder never fails to write
	_ = RenderMarkdown(&e, date, &b)
	return b.String()
}

// Header returns the standard Keep a Changelog header for a new file.
func Header(project string) string {
	if project == "" {
		project = "this project"
	}
	return `# Changelog

All notable changes to ` + project + ` will be documented in this file.

The format is based on [Keep a Changelog](https://keepachangelog.com/en/1.1.0/),
and this project adheres to [Semantic Versioning](https://semver.org/spec/v2.0.0.html).
`
}

// Prepend inserts a rendered release block above the newest release in an
// existing changelog. Empty input produces a new changelog with the header;
// input without a top-level heading gets the header prepended.
func Prepend(existing, block, project string) string {
	block = strings.TrimRight(block, "\n") + "\n"

	if strings.TrimSpace(existing) == "" {
		return Header(project) + "\n" + block
	}
	if !hasTitle(existing) {
		existing = Header(project) + "\n" + existing
	}

	idx := firstReleaseOffset(existing)
	if idx < 0 {
		return ensureBlankLine(existing) + block
	}
	return ensureBlankLine(existing[:idx]) + block + "\n" + existing[idx:]
}

// formatVersionHeader formats the version header line.
func formatVersionHeader(version, date string) string {
	if date == "" {
		return fmt.Sprintf("## [%s]", version)
	}
	return fmt.Sprintf("## [%s] - %s", version, date)
}

// formatSummary renders one summary as list item text. Categories other
// than the default are shown as a bold label; continuation lines are
// indented so they stay inside the list item.
func formatSummary(s Summary) string {
	text := strings.TrimSpace(s.Text)
	if s.Category != "" && s.Category != changeset.CategoryChanged {
		text = "**" + s.Category.Title() + "**: " + text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = "  " + lines[i]
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// renderSection writes a single section with its entries.
func renderSection(name string, entries []string, w io.Writer) error {
	if _, err := w.Write([]byte("\n### " + name + "\n")); err != nil {
		return err
	}

	for _, entry := range entries {
		if _, err := w.Write([]byte("- " + entry + "\n")); err != nil {
			return err
		}
	}

	return nil
}

func hasTitle(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return true
		}
	}
	return false
}

// firstReleaseOffset returns the byte offset of the first "## " heading,
// or -1 if there is none.
func firstReleaseOffset(content string) int {
	if strings.HasPrefix(content, "## ") {
		return 0
	}
	if i := strings.Index(content, "\n## "); i >= 0 {
		return i + 1
	}
	return -1
}

func ensureBlankLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return s
	}
	return s + "\n\n"
}
