// Package statefile persists the tag of the last successful deployment.
package statefile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

// File is a single-line text file holding the last deployed tag.
type File struct {
	path string
}

// New returns a File at path.
func New(path string) *File { return &File{path: path} }

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Read returns the stored tag with surrounding whitespace trimmed. A missing
// file reads as the empty tag.
func (f *File) Read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", foundationerrors.FileSystemError("failed to read state file").
			WithCause(err).
			WithContext("path", f.path).
			Build()
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the stored tag atomically. No trailing newline is written.
func (f *File) Write(tag string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return f.writeError(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return f.writeError(err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(tag); err != nil {
		_ = tmp.Close()
		cleanup()
		return f.writeError(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return f.writeError(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return f.writeError(err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return f.writeError(err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return f.writeError(err)
	}
	return nil
}

func (f *File) writeError(err error) error {
	return foundationerrors.FileSystemError("failed to write state file").
		WithCause(err).
		WithContext("path", f.path).
		Build()
}
