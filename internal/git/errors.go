package git

import (
	"errors"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

// GitError simplifies creating a git-scoped ClassifiedError.
func GitError(message string) *foundationerrors.ErrorBuilder {
	return foundationerrors.GitError(message)
}

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := foundationerrors.AsClassified(err); ok {
		return err
	}

	builder := GitError("git operation failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("path", path)

	l := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, gogit.ErrRepositoryNotExists):
		builder.WithCategory(foundationerrors.CategoryNotFound)
	case errors.Is(err, plumbing.ErrReferenceNotFound), errors.Is(err, gogit.ErrTagNotFound):
		builder.WithCategory(foundationerrors.CategoryNotFound)
	case strings.Contains(l, "permission denied"):
		builder.WithCategory(foundationerrors.CategoryFileSystem)
	}

	return builder.Build()
}
