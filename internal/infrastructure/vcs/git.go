// Package vcs adapts a git working tree to the ports.Repository interface.
package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Repository is a git working tree opened with go-git.
type Repository struct {
	repo      *git.Repository
	root      string
	commonDir string
}

// Open opens the repository containing path, searching parent directories
// for the .git entry.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	root := wt.Filesystem.Root()
	gitDir := filepath.Join(root, git.GitDirName)
	if storage, ok := repo.Storer.(*filesystem.Storage); ok {
		gitDir = storage.Filesystem().Root()
	}

	return &Repository{
		repo:      repo,
		root:      root,
		commonDir: resolveCommonDir(gitDir),
	}, nil
}

// resolveCommonDir follows the "commondir" file linked worktrees use to
// point at the main repository's git directory.
func resolveCommonDir(gitDir string) string {
	//nolint:gosec // G304: path is inside the repository's git directory
	data, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if err != nil {
		return gitDir
	}

	common := strings.TrimSpace(string(data))
	if common == "" {
		return gitDir
	}
	if !filepath.IsAbs(common) {
		common = filepath.Join(gitDir, common)
	}
	return filepath.Clean(common)
}

// Root returns the absolute path of the working tree.
func (r *Repository) Root() string {
	return r.root
}

// CommonDir returns the git directory shared by all worktrees.
func (r *Repository) CommonDir() string {
	return r.commonDir
}

// IsDirty reports whether any tracked file differs from HEAD.
// Untracked files don't count.
func (r *Repository) IsDirty(ctx context.Context) (bool, error) {
	status, err := r.status(ctx)
	if err != nil {
		return false, err
	}

	for _, fileStatus := range status {
		if changed(fileStatus) {
			return true, nil
		}
	}
	return false, nil
}

// HasPendingDiff reports whether path differs between HEAD and the index or
// working tree.
func (r *Repository) HasPendingDiff(ctx context.Context, path string) (bool, error) {
	status, err := r.status(ctx)
	if err != nil {
		return false, err
	}

	// Status.File would insert an untracked entry for unknown paths, so
	// index the map directly.
	fileStatus, ok := status[filepath.ToSlash(path)]
	if !ok {
		return false, nil
	}
	return changed(fileStatus), nil
}

// HeadRevision returns the commit hash HEAD points to.
func (r *Repository) HeadRevision(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// Stage adds path to the index.
func (r *Repository) Stage(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if _, err := wt.Add(filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	return nil
}

func (r *Repository) status(ctx context.Context) (git.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	return status, nil
}

func changed(s *git.FileStatus) bool {
	if s.Staging == git.Untracked && s.Worktree == git.Untracked {
		return false
	}
	return s.Staging != git.Unmodified || s.Worktree != git.Unmodified
}
