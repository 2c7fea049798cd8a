package graph

import (
	"fmt"
	"strings"
)

// DuplicatePackageError reports two descriptors with the same name.
type DuplicatePackageError struct {
	// Name is the duplicated package name.
	Name string
	// First is the manifest (or directory) of the first definition.
	First string
	// Second is the manifest (or directory) of the duplicate.
	Second string
}

// Error implements the error interface.
func (e *DuplicatePackageError) Error() string {
	return fmt.Sprintf("duplicate package %q (first defined in %s, duplicate in %s)",
		e.Name, e.First, e.Second)
}

// CyclicDependencyError reports a cycle among runtime/build edges.
type CyclicDependencyError struct {
	// Packages lists every package the topological sort could not place, sorted.
	Packages []string
	// Cycle is one concrete cycle among them, first element repeated at the end.
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("cyclic dependency: %s (involved packages: %s)",
			strings.Join(e.Cycle, " -> "), strings.Join(e.Packages, ", "))
	}
	return fmt.Sprintf("cyclic dependency among packages: %s", strings.Join(e.Packages, ", "))
}

// InvalidManifestError reports a descriptor with an unusable field.
type InvalidManifestError struct {
	// Package is the package the descriptor declares.
	Package string
	// Field names the offending field, e.g. "version" or "dependencies.core".
	Field string
	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("package %q: %s: %v", e.Package, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvalidManifestError) Unwrap() error {
	return e.Err
}
