package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ariel-frischer/changeset/internal/graph"
)

// DefaultPatterns is used when the configuration names no package globs:
// the root package plus every direct child of packages/.
var DefaultPatterns = []string{".", "packages/*"}

// Discover finds every directory matching patterns (doublestar globs relative
// to root) that contains a manifest, and returns one descriptor per package
// sorted by directory. Package directories are slash-separated and relative
// to root, "." for the root itself.
func Discover(root string, patterns []string) ([]graph.Descriptor, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	fsys := os.DirFS(root)
	dirs := make(map[string]bool)
	for _, pattern := range patterns {
		pattern = path.Clean(filepath.ToSlash(pattern))
		if pattern == "." {
			dirs["."] = true
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid package pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("expanding package pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := fs.Stat(fsys, m)
			if err != nil {
				return nil, fmt.Errorf("expanding package pattern %q: %w", pattern, err)
			}
			switch {
			case info.IsDir():
				dirs[m] = true
			case path.Base(m) == ManifestFile:
				// A pattern may point straight at manifest files.
				dirs[path.Dir(m)] = true
			}
		}
	}

	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	var descriptors []graph.Descriptor
	for _, dir := range sorted {
		manifestPath := filepath.Join(root, filepath.FromSlash(dir), ManifestFile)
		m, err := ReadManifest(manifestPath)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, m.Descriptor(dir))
	}

	logDebug("[workspace] discovered %d packages under %s", len(descriptors), root)
	return descriptors, nil
}

// debugLogger is a no-op unless SetDebugLogger is called.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for discovery.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}
