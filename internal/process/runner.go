// Package process runs the external commands that make up a deployment.
package process

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
)

// DefaultShell interprets every command.
const DefaultShell = "/bin/sh"

// maxLoggedOutput bounds captured output carried into logs and errors.
const maxLoggedOutput = 4096

// Runner executes a shell command and reports whether it succeeded.
type Runner interface {
	Run(ctx context.Context, command, dir string) bool
}

// Result describes one finished command.
type Result struct {
	Command  string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// OK reports whether the command launched and exited zero.
func (r Result) OK() bool { return r.Err == nil }

// ShellRunner runs commands through a POSIX shell synchronously. It never
// retries and applies no timeout of its own.
type ShellRunner struct {
	Shell  string
	Logger *slog.Logger
}

// NewShellRunner returns a runner using /bin/sh and the default logger.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: DefaultShell}
}

// Run executes command and returns true on a zero exit status. Launch
// failures and non-zero exits are logged with the captured stderr.
func (r *ShellRunner) Run(ctx context.Context, command, dir string) bool {
	return r.Execute(ctx, command, dir).OK()
}

// Execute runs command and returns the full result. Err is a
// CategoryProcess classified error when the command failed.
func (r *ShellRunner) Execute(ctx context.Context, command, dir string) Result {
	logger := r.logger()
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	// #nosec G204 -- commands come from the configuration; release tags are validated and quoted
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running command", logfields.Command(command), logfields.Dir(dir))
	start := time.Now()
	runErr := cmd.Run()

	res := Result{
		Command:  command,
		Dir:      dir,
		ExitCode: exitCode(cmd, runErr),
		Stdout:   truncate(stdout.String()),
		Stderr:   truncate(stderr.String()),
		Duration: time.Since(start),
	}

	if runErr != nil {
		res.Err = foundationerrors.WrapError(runErr, foundationerrors.CategoryProcess, "command failed").
			WithContext("command", command).
			WithContext("dir", dir).
			WithContext("exit_code", res.ExitCode).
			WithContext("stderr", res.Stderr).
			Build()
		logger.Error("Command failed",
			logfields.Command(command),
			logfields.Dir(dir),
			slog.Int("exit_code", res.ExitCode),
			logfields.Stderr(strings.TrimSpace(res.Stderr)),
			logfields.Error(runErr))
		if res.Stdout != "" {
			logger.Debug("Command output", logfields.Command(command), slog.String("stdout", res.Stdout))
		}
		return res
	}

	logger.Debug("Command finished",
		logfields.Command(command),
		logfields.Duration(res.Duration),
		slog.String("stdout", res.Stdout),
		logfields.Stderr(res.Stderr))
	return res
}

func (r *ShellRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func exitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

func truncate(s string) string {
	if len(s) <= maxLoggedOutput {
		return s
	}
	start := len(s) - maxLoggedOutput
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
