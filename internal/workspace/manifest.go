// Package workspace discovers package manifests in a workspace and reads and
// rewrites them. Rewrites go through the YAML node tree so comments, key
// order and unrelated fields survive a version bump.
package workspace

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/changeset/internal/graph"
)

// ManifestFile is the manifest file name looked up in every package directory.
const ManifestFile = "package.yaml"

// Manifest is a parsed package.yaml. The original node tree is kept so the
// manifest can be re-encoded with targeted edits.
//
//	name: app
//	version: 1.4.0
//	dependencies:
//	  core: "^1.0.0"
//	  test-kit:
//	    version: "^0.3.0"
//	    kind: dev
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Dependencies []graph.DependencySpec

	doc yaml.Node
}

// ReadManifest reads and parses the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return ParseManifest(path, content)
}

// ParseManifest parses manifest content; path is only used for messages.
func ParseManifest(path string, content []byte) (*Manifest, error) {
	m := &Manifest{Path: path}
	if err := yaml.Unmarshal(content, &m.doc); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	root := m.root()
	if root == nil {
		return nil, fmt.Errorf("manifest %s: expected a mapping", path)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "name":
			m.Name = strings.TrimSpace(value.Value)
		case "version":
			m.Version = strings.TrimSpace(value.Value)
		case "dependencies":
			deps, err := parseDependencies(value)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", path, err)
			}
			m.Dependencies = deps
		}
	}

	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s: missing name", path)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("manifest %s: missing version", path)
	}
	return m, nil
}

func parseDependencies(node *yaml.Node) ([]graph.DependencySpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: dependencies must be a mapping", node.Line)
	}

	var deps []graph.DependencySpec
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		spec := graph.DependencySpec{Name: key.Value, Kind: graph.KindRuntime}

		switch value.Kind {
		case yaml.ScalarNode:
			spec.Requirement = value.Value
		case yaml.MappingNode:
			var detailed struct {
				Version string `yaml:"version"`
				Kind    string `yaml:"kind"`
			}
			if err := value.Decode(&detailed); err != nil {
				return nil, fmt.Errorf("line %d: dependency %q: %w", value.Line, key.Value, err)
			}
			kind, err := graph.ParseDependencyKind(detailed.Kind)
			if err != nil {
				return nil, fmt.Errorf("line %d: dependency %q: %w", value.Line, key.Value, err)
			}
			spec.Requirement = detailed.Version
			spec.Kind = kind
		default:
			return nil, fmt.Errorf("line %d: dependency %q must be a string or mapping", value.Line, key.Value)
		}
		deps = append(deps, spec)
	}
	return deps, nil
}

func (m *Manifest) root() *yaml.Node {
	if m.doc.Kind != yaml.DocumentNode || len(m.doc.Content) == 0 {
		return nil
	}
	if m.doc.Content[0].Kind != yaml.MappingNode {
		return nil
	}
	return m.doc.Content[0]
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// SetVersion rewrites the package version.
func (m *Manifest) SetVersion(v string) error {
	node := lookup(m.root(), "version")
	if node == nil {
		return fmt.Errorf("manifest %s: missing version", m.Path)
	}
	node.Value = v
	node.Style = 0
	m.Version = v
	return nil
}

// SetRequirement rewrites the version requirement of an internal dependency.
func (m *Manifest) SetRequirement(dep, requirement string) error {
	deps := lookup(m.root(), "dependencies")
	if deps == nil {
		return fmt.Errorf("manifest %s: no dependencies", m.Path)
	}
	node := lookup(deps, dep)
	if node == nil {
		return fmt.Errorf("manifest %s: no dependency %q", m.Path, dep)
	}
	if node.Kind == yaml.MappingNode {
		inner := lookup(node, "version")
		if inner == nil {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "version"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: requirement, Style: yaml.DoubleQuotedStyle},
			)
		} else {
			inner.Value = requirement
		}
	} else {
		node.Value = requirement
	}

	for i := range m.Dependencies {
		if m.Dependencies[i].Name == dep {
			m.Dependencies[i].Requirement = requirement
		}
	}
	return nil
}

// Encode renders the manifest with any edits applied.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&m.doc); err != nil {
		return nil, fmt.Errorf("encoding manifest %s: %w", m.Path, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest %s: %w", m.Path, err)
	}
	return buf.Bytes(), nil
}

// Descriptor converts the manifest into a graph descriptor for a package
// living in dir (slash-separated, relative to the workspace root).
func (m *Manifest) Descriptor(dir string) graph.Descriptor {
	return graph.Descriptor{
		Name:         m.Name,
		Version:      m.Version,
		Dir:          dir,
		ManifestPath: m.Path,
		Dependencies: append([]graph.DependencySpec(nil), m.Dependencies...),
	}
}
