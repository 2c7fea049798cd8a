package changelog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ariel-frischer/changeset/internal/changeset"
)

// SectionStyle defines the color and icon for a changelog section.
type SectionStyle struct {
	Color *color.Color
	Icon  string
}

// sectionStyles maps severities to their terminal styling.
var sectionStyles = map[changeset.Severity]SectionStyle{
	changeset.Major: {Color: color.New(color.FgRed), Icon: "!"},
	changeset.Minor: {Color: color.New(color.FgGreen), Icon: "+"},
	changeset.Patch: {Color: color.New(color.FgYellow), Icon: "~"},
}

var dependencyStyle = SectionStyle{Color: color.New(color.FgBlue), Icon: "↑"}

// FormatOptions controls the terminal output formatting.
type FormatOptions struct {
	Plain    bool // Disable colors and icons
	MaxWidth int  // Maximum line width (0 = auto-detect)
}

// FormatTerminal writes a preview of the entries with terminal styling,
// one block per package with color-coded section headers.
func FormatTerminal(entries []Entry, w io.Writer, opts FormatOptions) error {
	width := resolveWidth(opts.MaxWidth)

	for i := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := formatEntry(&entries[i], w, opts, width); err != nil {
			return fmt.Errorf("formatting %s: %w", entries[i].Package, err)
		}
	}

	return nil
}

func formatEntry(e *Entry, w io.Writer, opts FormatOptions, width int) error {
	header := fmt.Sprintf("%s v%s", e.Package, e.Version)
	if opts.Plain {
		if _, err := fmt.Fprintf(w, "## %s\n", header); err != nil {
			return err
		}
	} else {
		bold := color.New(color.Bold).SprintFunc()
		if _, err := fmt.Fprintf(w, "## %s\n", bold(header)); err != nil {
			return err
		}
	}

	for _, s := range e.Sections {
		lines := make([]string, 0, len(s.Summaries))
		for _, sum := range s.Summaries {
			lines = append(lines, formatSummary(sum))
		}
		if err := writeSection(s.Title(), sectionStyles[s.Severity], lines, w, opts, width); err != nil {
			return err
		}
	}
	if len(e.DependencyUpdates) > 0 {
		return writeSection(DependenciesTitle, dependencyStyle, e.DependencyUpdates, w, opts, width)
	}
	return nil
}

// writeSection writes a single section header with its lines.
func writeSection(title string, style SectionStyle, lines []string, w io.Writer, opts FormatOptions, width int) error {
	if opts.Plain {
		if _, err := fmt.Fprintf(w, "\n### %s\n", title); err != nil {
			return err
		}
	} else {
		colored := style.Color.SprintFunc()
		if _, err := fmt.Fprintf(w, "\n%s %s\n", colored(style.Icon), colored(title)); err != nil {
			return err
		}
	}

	prefix := "  - "
	for _, line := range lines {
		text := line
		if !opts.Plain {
			text = wrapText(strings.ReplaceAll(line, "\n  ", " "), width-len(prefix), "    ")
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix, text); err != nil {
			return err
		}
	}
	return nil
}

// resolveWidth determines the terminal width to use.
func resolveWidth(maxWidth int) int {
	if maxWidth > 0 {
		return maxWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// wrapText wraps text to fit within maxWidth runes, using indent for
// continuation lines.
func wrapText(text string, maxWidth int, indent string) string {
	if maxWidth <= 0 || utf8.RuneCountInString(text) <= maxWidth {
		return text
	}

	var lines []string
	remaining := []rune(text)

	for len(remaining) > maxWidth {
		// Last space within maxWidth
		breakPoint := maxWidth
		for i := maxWidth - 1; i > 0; i-- {
			if remaining[i] == ' ' {
				breakPoint = i
				break
			}
		}

		lines = append(lines, string(remaining[:breakPoint]))
		remaining = []rune(strings.TrimLeft(string(remaining[breakPoint:]), " "))
	}

	if len(remaining) > 0 {
		lines = append(lines, string(remaining))
	}

	return strings.Join(lines, "\n"+indent)
}
