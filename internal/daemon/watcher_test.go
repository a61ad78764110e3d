package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) <-chan struct{} {
	t.Helper()
	changed := make(chan struct{}, 4)
	w, err := NewStateFileWatcher(path, 20*time.Millisecond, func() { changed <- struct{}{} }, nil)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(t.Context())
	}()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
	})
	return changed
}

func TestStateFileWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployed_tag")
	changed := startWatcher(t, path)

	for _, tag := range []string{"v1", "v2", "v3"} {
		require.NoError(t, os.WriteFile(path, []byte(tag), 0o600))
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected change notification")
	}
	select {
	case <-changed:
		t.Fatal("burst should produce one notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStateFileWatcherSeesRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployed_tag")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	changed := startWatcher(t, path)

	require.NoError(t, os.Remove(path))
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected change notification")
	}
}

func TestStateFileWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, filepath.Join(dir, "deployed_tag"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o600))
	select {
	case <-changed:
		t.Fatal("unrelated file must not trigger")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestNewStateFileWatcherMissingDirectory(t *testing.T) {
	_, err := NewStateFileWatcher(filepath.Join(t.TempDir(), "missing", "tag"), 0, nil, nil)
	require.Error(t, err)
}
