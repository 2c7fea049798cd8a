package changeset

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Format renders a changeset in the on-disk front matter form accepted by Parse.
func Format(cs *Changeset) ([]byte, error) {
	if len(cs.Releases) == 0 {
		return nil, ErrNoReleases
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range cs.Releases {
		if IsReservedName(r.Package) {
			return nil, fmt.Errorf("%w: %q", ErrReservedName, r.Package)
		}
		if r.Severity == None {
			return nil, fmt.Errorf("package %q has no severity", r.Package)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: r.Package, Style: yaml.DoubleQuotedStyle},
			&yaml.Node{Kind: yaml.ScalarNode, Value: r.Severity.String()},
		)
	}
	if cs.Category != "" && cs.Category != CategoryChanged {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: categoryKey},
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(cs.Category)},
		)
	}

	front, err := yaml.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	buf.Write(bytes.TrimRight(front, "\n"))
	buf.WriteString("\n" + fence + "\n")
	if cs.Summary != "" {
		buf.WriteString("\n")
		buf.WriteString(cs.Summary)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}
