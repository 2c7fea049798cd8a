package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ariel-frischer/changeset/internal/changeset"
	"github.com/ariel-frischer/changeset/internal/config"
	clierrors "github.com/ariel-frischer/changeset/internal/errors"
	"github.com/ariel-frischer/changeset/internal/graph"
	"github.com/ariel-frischer/changeset/internal/resolve"
	"github.com/ariel-frischer/changeset/internal/workspace"
)

// session is a loaded workspace: configuration, package graph and pending
// changesets.
type session struct {
	root       string
	cfg        *config.Configuration
	graph      *graph.Graph
	store      *changeset.Store
	changesets []*changeset.Changeset
}

// loadConfig loads the configuration of the workspace at root.
func loadConfig(root string) (string, *config.Configuration, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return "", nil, clierrors.NewConfigError(err,
			"Check .changeset/config.yml and CHANGESET_* environment variables")
	}
	return abs, cfg, nil
}

// openSession loads the workspace at root. Graph construction, changeset
// parsing and discovery errors are returned typed.
func openSession(ctx context.Context, root string) (*session, error) {
	abs, cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}

	descriptors, err := workspace.Discover(abs, cfg.Packages)
	if err != nil {
		return nil, fmt.Errorf("discovering packages: %w", err)
	}
	if len(descriptors) == 0 {
		return nil, clierrors.NewConfigError(
			fmt.Errorf("no %s found matching %v under %s", workspace.ManifestFile, cfg.Packages, abs),
			"Adjust the 'packages' globs in .changeset/config.yml")
	}

	g, err := graph.Build(descriptors)
	if err != nil {
		return nil, err
	}

	store := changeset.NewStore(cfg.ChangesetPath(abs))
	changesets, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &session{
		root:       abs,
		cfg:        cfg,
		graph:      g,
		store:      store,
		changesets: changesets,
	}, nil
}

// plan resolves the pending changesets into a release plan.
func (s *session) plan() (*resolve.Plan, error) {
	opts, err := s.cfg.ResolveOptions()
	if err != nil {
		return nil, clierrors.NewConfigError(err)
	}
	return resolve.New(opts).Resolve(s.graph, s.changesets)
}
