package changeset

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	fence = "---"

	// categoryKey is the only reserved front matter key; all others are package names.
	categoryKey = "category"

	// MaxFileSize bounds the size of a single changeset file.
	MaxFileSize = 1 << 20
)

// Parse parses a changeset document with the given identifier.
//
// The document is YAML front matter mapping package names to severities,
// optionally with a `category` key, followed by the free-text summary:
//
//	---
//	"my-package": minor
//	category: added
//	---
//	Add streaming support.
func Parse(id string, content []byte) (*Changeset, error) {
	cs, err := parse(content)
	if err != nil {
		return nil, &MalformedError{ID: id, Err: err}
	}
	cs.ID = id
	return cs, nil
}

func parse(content []byte) (*Changeset, error) {
	if len(content) > MaxFileSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, MaxFileSize)
	}

	front, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(front, &doc); err != nil {
		return nil, fmt.Errorf("parsing front matter YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrEmptyFrontMatter
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("front matter must be a mapping of package names to severities")
	}

	cs := &Changeset{
		Summary:  strings.TrimSpace(body),
		Category: CategoryChanged,
	}
	seen := make(map[string]bool)

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: value for %q must be a scalar", value.Line, key.Value)
		}
		name := strings.TrimSpace(key.Value)
		if seen[name] {
			return nil, fmt.Errorf("line %d: duplicate key %q", key.Line, name)
		}
		seen[name] = true

		if name == categoryKey {
			category, err := ParseCategory(value.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", value.Line, err)
			}
			cs.Category = category
			continue
		}

		if name == "" {
			return nil, fmt.Errorf("line %d: empty package name", key.Line)
		}
		severity, err := ParseSeverity(value.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: package %q: %w", value.Line, name, err)
		}
		cs.Releases = append(cs.Releases, Release{Package: name, Severity: severity})
	}

	if len(cs.Releases) == 0 {
		return nil, ErrNoReleases
	}
	return cs, nil
}

// IsReservedName reports whether name cannot be used as a package in front matter.
func IsReservedName(name string) bool {
	return strings.TrimSpace(name) == categoryKey
}

// splitFrontMatter separates the YAML block from the body. Line endings are
// normalized so CRLF files parse the same as LF files.
func splitFrontMatter(content []byte) ([]byte, string, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	normalized = bytes.TrimLeft(normalized, " \t\n")

	if !bytes.HasPrefix(normalized, []byte(fence+"\n")) && !bytes.Equal(normalized, []byte(fence)) {
		return nil, "", ErrMissingOpeningFence
	}
	rest := normalized[len(fence):]
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	var front, body []byte
	switch {
	case bytes.HasPrefix(rest, []byte(fence)):
		front, body = nil, rest[len(fence):]
	default:
		idx := bytes.Index(rest, []byte("\n"+fence))
		if idx < 0 {
			return nil, "", ErrMissingClosingFence
		}
		front, body = rest[:idx], rest[idx+1+len(fence):]
	}

	if len(bytes.TrimSpace(front)) == 0 {
		return nil, "", ErrEmptyFrontMatter
	}
	return front, string(body), nil
}
