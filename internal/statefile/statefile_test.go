package statefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

func TestReadMissingIsEmpty(t *testing.T) {
	tag, err := New(filepath.Join(t.TempDir(), "last_tag")).Read()
	require.NoError(t, err)
	require.Empty(t, tag)
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "last_tag")
	f := New(path)
	require.NoError(t, f.Write("v2.0"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v2.0", string(raw))

	tag, err := f.Read()
	require.NoError(t, err)
	require.Equal(t, "v2.0", tag)

	require.NoError(t, f.Write("v2.1"))
	tag, err = f.Read()
	require.NoError(t, err)
	require.Equal(t, "v2.1", tag)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestReadTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_tag")
	require.NoError(t, os.WriteFile(path, []byte("  v1.0\n"), 0o600))
	tag, err := New(path).Read()
	require.NoError(t, err)
	require.Equal(t, "v1.0", tag)
}

func TestReadUnreadable(t *testing.T) {
	// A directory at the state file path cannot be read as a file.
	path := t.TempDir()
	_, err := New(path).Read()
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryFileSystem))
}

func TestWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := New(filepath.Join(blocker, "last_tag")).Write("v1")
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryFileSystem))
}
