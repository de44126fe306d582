// Package ports defines interfaces for infrastructure dependencies.
// These are the "ports" in hexagonal architecture - abstractions that
// the application layer depends on but doesn't implement.
package ports

import (
	"context"

	"github.com/scala-isabelle/devscripts/internal/domain/catalog"
)

// Repository abstracts the version-control operations the generator needs.
// Paths are relative to the repository root.
type Repository interface {
	// Root returns the absolute path of the working tree.
	Root() string

	// CommonDir returns the git directory shared by all worktrees (hooks live here).
	CommonDir() string

	// IsDirty reports whether tracked files have uncommitted changes.
	IsDirty(ctx context.Context) (bool, error)

	// HasPendingDiff reports whether path differs between HEAD and the working tree.
	HasPendingDiff(ctx context.Context, path string) (bool, error)

	// HeadRevision returns the commit hash HEAD points to.
	HeadRevision(ctx context.Context) (string, error)

	// Stage adds path to the index.
	Stage(ctx context.Context, path string) error
}

// CatalogLoader loads the profile catalog from storage.
type CatalogLoader interface {
	LoadCatalog(path string) (*catalog.Catalog, error)
}

// ProfilePicker asks a human to choose among profile names.
type ProfilePicker interface {
	PickProfile(ctx context.Context, names []string) (string, error)
}
