package release

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDirtyWorkingTree is returned when a release would commit on top of
// uncommitted changes.
var ErrDirtyWorkingTree = errors.New("working tree has uncommitted changes")

// Problem is one reason a release cannot be written.
type Problem struct {
	// Path is the file concerned, if any.
	Path    string
	Message string
}

// String renders the problem for display.
func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// WriteValidationError lists every problem found while validating a
// transaction. Nothing has been written when it is returned.
type WriteValidationError struct {
	Problems []Problem
}

// Error implements the error interface.
func (e *WriteValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "release validation failed with %d problem(s):", len(e.Problems))
	for _, p := range e.Problems {
		sb.WriteString("\n  - ")
		sb.WriteString(p.String())
	}
	return sb.String()
}
