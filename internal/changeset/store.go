package changeset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDir is the changeset directory relative to the workspace root.
	DefaultDir = ".changeset"
	// ArchiveDirName is the subdirectory consumed changesets are moved into.
	ArchiveDirName = "archive"

	fileExt = ".md"
)

// debugLogger is a no-op unless SetDebugLogger is called.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for store operations.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// Store reads and writes changeset files in a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the changeset directory.
func (s *Store) Dir() string {
	return s.dir
}

// ArchiveDir returns the directory consumed changesets are moved into.
func (s *Store) ArchiveDir() string {
	return filepath.Join(s.dir, ArchiveDirName)
}

// List returns the paths of pending changeset files, sorted by name.
// A missing directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading changeset directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsChangesetFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsChangesetFile reports whether a file name looks like a changeset record.
func IsChangesetFile(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), fileExt) {
		return false
	}
	return !strings.EqualFold(name, "README.md")
}

// Load reads and parses every pending changeset. Files are parsed
// concurrently; the result is only assembled after every parse completes,
// sorted by ID with Ordinal set to the position in that order.
func (s *Store) Load(ctx context.Context) ([]*Changeset, error) {
	paths, err := s.List()
	if err != nil {
		return nil, err
	}

	parsed := make([]*Changeset, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cs, err := ReadFile(path)
			if err != nil {
				return err
			}
			parsed[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].ID < parsed[j].ID
	})
	for i, cs := range parsed {
		cs.Ordinal = i
	}

	logDebug("[changeset] loaded %d changesets from %s", len(parsed), s.dir)
	return parsed, nil
}

// ReadFile parses a single changeset file. The ID is the file stem.
func ReadFile(path string) (*Changeset, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading changeset %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, &MalformedError{ID: id, Path: path, Err: ErrTooLarge}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading changeset %s: %w", path, err)
	}

	cs, err := Parse(id, content)
	if err != nil {
		var malformed *MalformedError
		if errors.As(err, &malformed) {
			malformed.Path = path
		}
		return nil, err
	}
	cs.Path = path
	return cs, nil
}

// NewID returns a fresh identifier. IDs are UUIDv7 strings so lexical order
// follows creation order.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating changeset id: %w", err)
	}
	return id.String(), nil
}

// Write stores a new changeset and returns its path. When cs.ID is empty a
// new ID is generated. Existing files are never overwritten.
func (s *Store) Write(cs *Changeset) (string, error) {
	if cs.ID == "" {
		id, err := NewID()
		if err != nil {
			return "", err
		}
		cs.ID = id
	}

	content, err := Format(cs)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating changeset directory: %w", err)
	}

	path := filepath.Join(s.dir, cs.ID+fileExt)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating changeset %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return "", fmt.Errorf("writing changeset %s: %w", path, err)
	}
	cs.Path = path

	logDebug("[changeset] wrote %s", path)
	return path, nil
}

// ArchivePath returns where cs is moved to when archived.
func (s *Store) ArchivePath(cs *Changeset) string {
	name := cs.ID + fileExt
	if cs.Path != "" {
		name = filepath.Base(cs.Path)
	}
	return filepath.Join(s.ArchiveDir(), name)
}

// Archive moves a consumed changeset into the archive directory.
func (s *Store) Archive(cs *Changeset) error {
	if cs.Path == "" {
		return fmt.Errorf("changeset %s has no backing file", cs.ID)
	}
	if err := os.MkdirAll(s.ArchiveDir(), 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	dst := s.ArchivePath(cs)
	if err := os.Rename(cs.Path, dst); err != nil {
		return fmt.Errorf("archiving changeset %s: %w", cs.ID, err)
	}
	logDebug("[changeset] archived %s -> %s", cs.Path, dst)
	return nil
}
