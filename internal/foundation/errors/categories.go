package errors

import "maps"

// ErrorCategory names the part of a deployment an error came from. The CLI
// maps categories to exit codes, the HTTP servers to status codes.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"     // configuration file and environment
	CategoryValidation ErrorCategory = "validation" // rejected input values
	CategoryNotFound   ErrorCategory = "not_found"  // missing release, tag or endpoint

	CategoryNetwork ErrorCategory = "network" // release API
	CategoryGit     ErrorCategory = "git"     // checkout inspection

	CategoryProcess    ErrorCategory = "process"    // external commands
	CategoryDeploy     ErrorCategory = "deploy"     // cycle verdicts
	CategoryFileSystem ErrorCategory = "filesystem" // state file
	CategoryEventStore ErrorCategory = "eventstore" // deployment history

	CategoryRuntime  ErrorCategory = "runtime"  // listeners
	CategoryInternal ErrorCategory = "internal" // panics and bugs
)

// ErrorSeverity picks the log level of an error and whether the CLI logs it.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
)

// RetryStrategy tells callers whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNone      RetryStrategy = "none"
	RetryNextCycle RetryStrategy = "next_cycle" // the deployment loop tries again later
	RetryBackoff   RetryStrategy = "backoff"    // worth retrying within the same cycle
)

// ErrorContext holds structured fields logged alongside an error.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

func (c ErrorContext) clone() ErrorContext {
	out := make(ErrorContext, len(c)+1)
	maps.Copy(out, c)
	return out
}
