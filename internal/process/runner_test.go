package process

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

func newRunner(buf *bytes.Buffer) *ShellRunner {
	return &ShellRunner{Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}

func TestRunSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.True(t, newRunner(&buf).Run(context.Background(), "true", ""))
}

func TestRunNonZeroExitLogsStderr(t *testing.T) {
	var buf bytes.Buffer
	r := newRunner(&buf)
	require.False(t, r.Run(context.Background(), "echo 'fatal: bad ref' >&2; exit 3", ""))
	require.Contains(t, buf.String(), "Command failed")
	require.Contains(t, buf.String(), "fatal: bad ref")
}

func TestExecuteCapturesResult(t *testing.T) {
	var buf bytes.Buffer
	res := newRunner(&buf).Execute(context.Background(), "echo out; echo err >&2; exit 4", "")
	require.False(t, res.OK())
	require.Equal(t, 4, res.ExitCode)
	require.Equal(t, "out\n", res.Stdout)
	require.Equal(t, "err\n", res.Stderr)
	require.True(t, foundationerrors.HasCategory(res.Err, foundationerrors.CategoryProcess))
}

func TestExecuteRunsInDir(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	res := newRunner(&buf).Execute(context.Background(), "pwd > where.txt", dir)
	require.True(t, res.OK(), res.Stderr)

	b, err := os.ReadFile(filepath.Join(dir, "where.txt"))
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.Equal(t, resolved, strings.TrimSpace(string(b)))
}

func TestRunLaunchFailure(t *testing.T) {
	var buf bytes.Buffer
	r := newRunner(&buf)
	require.False(t, r.Run(context.Background(), "true", filepath.Join(t.TempDir(), "does-not-exist")))

	r.Shell = "/nonexistent/shell"
	res := r.Execute(context.Background(), "true", "")
	require.False(t, res.OK())
	require.Equal(t, -1, res.ExitCode)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	require.False(t, newRunner(&buf).Run(ctx, "sleep 5", ""))
}

func TestTruncateKeepsTail(t *testing.T) {
	long := strings.Repeat("a", maxLoggedOutput) + "TAIL"
	got := truncate(long)
	require.Len(t, got, maxLoggedOutput)
	require.True(t, strings.HasSuffix(got, "TAIL"))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// The byte cut lands on the second byte of "é".
	tail := strings.Repeat("b", maxLoggedOutput-1)
	long := strings.Repeat("a", maxLoggedOutput) + "é" + tail
	got := truncate(long)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, tail, got)
}
