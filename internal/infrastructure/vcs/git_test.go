package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository with one commit holding README and
// .circleci/config.yml, returning its root and the commit hash.
func initRepo(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	writeFile(t, root, "README", "hello\n")
	writeFile(t, root, ".circleci/config.yml", "version: 2.1\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	_, err = wt.Add(".circleci/config.yml")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return root, hash.String()
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestOpen_DetectsRootFromSubdirectory(t *testing.T) {
	root, _ := initRepo(t)

	r, err := Open(filepath.Join(root, ".circleci"))
	require.NoError(t, err)
	assert.Equal(t, root, r.Root())
	assert.Equal(t, filepath.Join(root, ".git"), r.CommonDir())
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open repository")
}

func TestRepository_HeadRevision(t *testing.T) {
	root, hash := initRepo(t)

	r, err := Open(root)
	require.NoError(t, err)

	rev, err := r.HeadRevision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, rev)
}

func TestRepository_DirtyState(t *testing.T) {
	ctx := context.Background()

	t.Run("clean", func(t *testing.T) {
		root, _ := initRepo(t)
		r, err := Open(root)
		require.NoError(t, err)

		dirty, err := r.IsDirty(ctx)
		require.NoError(t, err)
		assert.False(t, dirty)

		pending, err := r.HasPendingDiff(ctx, ".circleci/config.yml")
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("untracked files are ignored", func(t *testing.T) {
		root, _ := initRepo(t)
		writeFile(t, root, "scratch.txt", "tmp\n")
		r, err := Open(root)
		require.NoError(t, err)

		dirty, err := r.IsDirty(ctx)
		require.NoError(t, err)
		assert.False(t, dirty)

		pending, err := r.HasPendingDiff(ctx, "scratch.txt")
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("modified source file", func(t *testing.T) {
		root, _ := initRepo(t)
		writeFile(t, root, "README", "changed\n")
		r, err := Open(root)
		require.NoError(t, err)

		dirty, err := r.IsDirty(ctx)
		require.NoError(t, err)
		assert.True(t, dirty)

		pending, err := r.HasPendingDiff(ctx, ".circleci/config.yml")
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("modified output file", func(t *testing.T) {
		root, _ := initRepo(t)
		writeFile(t, root, ".circleci/config.yml", "version: 2.1\njobs: {}\n")
		r, err := Open(root)
		require.NoError(t, err)

		pending, err := r.HasPendingDiff(ctx, ".circleci/config.yml")
		require.NoError(t, err)
		assert.True(t, pending)
	})
}

func TestRepository_Stage(t *testing.T) {
	ctx := context.Background()
	root, _ := initRepo(t)
	writeFile(t, root, ".circleci/config.yml", "version: 2.1\n# regenerated\n")

	r, err := Open(root)
	require.NoError(t, err)
	require.NoError(t, r.Stage(ctx, ".circleci/config.yml"))

	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)

	fileStatus, ok := status[".circleci/config.yml"]
	require.True(t, ok)
	assert.Equal(t, git.Modified, fileStatus.Staging)
	assert.Equal(t, git.Unmodified, fileStatus.Worktree)
}

func TestRepository_CanceledContext(t *testing.T) {
	root, _ := initRepo(t)
	r, err := Open(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.IsDirty(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, r.Stage(ctx, "README"), context.Canceled)
}

func TestResolveCommonDir(t *testing.T) {
	main := t.TempDir()
	linked := filepath.Join(main, "worktrees", "feature")
	require.NoError(t, os.MkdirAll(linked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(linked, "commondir"), []byte("../..\n"), 0o600))

	assert.Equal(t, main, resolveCommonDir(linked))
	assert.Equal(t, main, resolveCommonDir(main))
}
