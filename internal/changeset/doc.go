// Package changeset provides the changeset record model and its on-disk form.
//
// The package implements:
//   - Severity ordering and combination (patch < minor < major)
//   - Front-matter parsing and serialization of .changeset/*.md files
//   - A directory Store that loads the pending backlog concurrently and archives
//     consumed records instead of deleting them
//   - A Watch helper that reports backlog changes for long-running status views
//
// Changesets are immutable once parsed. A release consumes them by moving the
// files into the archive directory, so a concurrent `changeset add` never races
// with an in-place edit.
package changeset
