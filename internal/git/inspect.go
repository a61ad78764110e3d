package git

import (
	"errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Checkout describes the state of a working copy after a deployment.
type Checkout struct {
	Head      string
	TagCommit string
	// Detached is true when HEAD points directly at a commit, as after
	// "git checkout tags/<tag>".
	Detached bool
}

// Matches reports whether HEAD is at the tag's commit.
func (c Checkout) Matches() bool {
	return c.Head != "" && c.Head == c.TagCommit
}

// Inspector reads checkout state from repositories on disk.
type Inspector struct{}

// NewInspector returns an Inspector.
func NewInspector() *Inspector { return &Inspector{} }

// HeadCommit returns the commit hash HEAD resolves to.
func (i *Inspector) HeadCommit(repoPath string) (string, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return "", ClassifyGitError(err, "open", repoPath)
	}
	head, err := repo.Head()
	if err != nil {
		return "", ClassifyGitError(err, "head", repoPath)
	}
	return head.Hash().String(), nil
}

// Inspect resolves HEAD and the commit tag points at.
func (i *Inspector) Inspect(repoPath, tag string) (Checkout, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return Checkout{}, ClassifyGitError(err, "open", repoPath)
	}

	head, err := repo.Head()
	if err != nil {
		return Checkout{}, ClassifyGitError(err, "head", repoPath)
	}
	out := Checkout{
		Head:     head.Hash().String(),
		Detached: head.Name() == plumbing.HEAD,
	}

	commit, err := resolveTagCommit(repo, tag)
	if err != nil {
		return out, GitError("failed to resolve tag").
			WithCause(err).
			WithContext("tag", tag).
			WithContext("path", repoPath).
			Build()
	}
	out.TagCommit = commit.String()
	return out, nil
}

// resolveTagCommit peels annotated tags down to the tagged commit.
func resolveTagCommit(repo *gogit.Repository, tag string) (plumbing.Hash, error) {
	ref, err := repo.Tag(tag)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	obj, err := repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		c, cerr := obj.Commit()
		if cerr != nil {
			return plumbing.ZeroHash, cerr
		}
		return c.Hash, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return ref.Hash(), nil
	default:
		return plumbing.ZeroHash, err
	}
}
