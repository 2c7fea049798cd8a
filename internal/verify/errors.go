package verify

import (
	"fmt"
	"strings"
)

// CoverageError lists every changed package no changeset names.
type CoverageError struct {
	// Packages is sorted by name.
	Packages []string
}

// Error implements the error interface.
func (e *CoverageError) Error() string {
	noun := "packages"
	if len(e.Packages) == 1 {
		noun = "package"
	}
	return fmt.Sprintf("%d changed %s without a changeset: %s", len(e.Packages), noun, strings.Join(e.Packages, ", "))
}

// DeletedChangesetsError lists pending changeset files removed by the
// changes under verification.
type DeletedChangesetsError struct {
	Paths []string
}

// Error implements the error interface.
func (e *DeletedChangesetsError) Error() string {
	return fmt.Sprintf("changesets deleted: %s", strings.Join(e.Paths, ", "))
}
