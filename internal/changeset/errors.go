package changeset

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOpeningFence indicates the document did not start with `---`.
	ErrMissingOpeningFence = errors.New("missing opening front matter delimiter")
	// ErrMissingClosingFence indicates the front matter was never closed.
	ErrMissingClosingFence = errors.New("missing closing front matter delimiter")
	// ErrEmptyFrontMatter indicates nothing was declared between the fences.
	ErrEmptyFrontMatter = errors.New("front matter is empty")
	// ErrNoReleases indicates the front matter declares no package.
	ErrNoReleases = errors.New("changeset must declare at least one release")
	// ErrTooLarge indicates the file exceeds MaxFileSize.
	ErrTooLarge = errors.New("changeset exceeds maximum size")
	// ErrReservedName indicates a package named like a reserved front matter key.
	ErrReservedName = errors.New("package name is reserved")
)

// MalformedError reports a changeset that could not be parsed.
type MalformedError struct {
	// ID is the changeset identifier (file stem), if known.
	ID string
	// Path is the file that failed to parse, if any.
	Path string
	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	where := e.ID
	if e.Path != "" {
		where = e.Path
	}
	if where == "" {
		return fmt.Sprintf("malformed changeset: %v", e.Err)
	}
	return fmt.Sprintf("malformed changeset %s: %v", where, e.Err)
}

// Unwrap returns the underlying error.
func (e *MalformedError) Unwrap() error {
	return e.Err
}
