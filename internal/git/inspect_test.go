package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

var sig = &object.Signature{Name: "Deployer", Email: "deploy@example.com", When: time.Unix(1700000000, 0)}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	_, err = wt.Add(name)
	require.NoError(t, err)
	h, err := wt.Commit("update "+name, &gogit.CommitOptions{Author: sig})
	require.NoError(t, err)
	return h
}

func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func TestInspectLightweightTagAtHead(t *testing.T) {
	dir, repo := initRepo(t)
	h := commitFile(t, repo, dir, "app.txt", "v1")
	_, err := repo.CreateTag("v1.0", h, nil)
	require.NoError(t, err)

	co, err := NewInspector().Inspect(dir, "v1.0")
	require.NoError(t, err)
	require.Equal(t, h.String(), co.Head)
	require.Equal(t, h.String(), co.TagCommit)
	require.True(t, co.Matches())
	require.False(t, co.Detached)
}

func TestInspectAnnotatedTagDetachedCheckout(t *testing.T) {
	dir, repo := initRepo(t)
	first := commitFile(t, repo, dir, "app.txt", "v1")
	_, err := repo.CreateTag("v2.0", first, &gogit.CreateTagOptions{Tagger: sig, Message: "release 2.0"})
	require.NoError(t, err)
	commitFile(t, repo, dir, "app.txt", "v2-dev")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&gogit.CheckoutOptions{Hash: first}))

	co, err := NewInspector().Inspect(dir, "v2.0")
	require.NoError(t, err)
	require.True(t, co.Detached)
	require.Equal(t, first.String(), co.TagCommit)
	require.True(t, co.Matches())
}

func TestInspectMismatch(t *testing.T) {
	dir, repo := initRepo(t)
	first := commitFile(t, repo, dir, "a.txt", "1")
	_, err := repo.CreateTag("v1.0", first, nil)
	require.NoError(t, err)
	second := commitFile(t, repo, dir, "a.txt", "2")

	co, err := NewInspector().Inspect(dir, "v1.0")
	require.NoError(t, err)
	require.Equal(t, second.String(), co.Head)
	require.False(t, co.Matches())
}

func TestInspectUnknownTag(t *testing.T) {
	dir, repo := initRepo(t)
	h := commitFile(t, repo, dir, "a.txt", "1")

	co, err := NewInspector().Inspect(dir, "v9.9")
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryGit))
	require.Equal(t, h.String(), co.Head)
}

func TestInspectNotARepository(t *testing.T) {
	_, err := NewInspector().Inspect(t.TempDir(), "v1.0")
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))

	_, err = NewInspector().HeadCommit(t.TempDir())
	require.Error(t, err)
}

func TestHeadCommit(t *testing.T) {
	dir, repo := initRepo(t)
	h := commitFile(t, repo, dir, "a.txt", "1")
	got, err := NewInspector().HeadCommit(dir)
	require.NoError(t, err)
	require.Equal(t, h.String(), got)
}
