// Package errors provides the classified error primitives used across autodeployer.
//
// A ClassifiedError carries a category, a severity, a retry hint and a small
// context map next to the wrapped cause. Errors are built through the fluent
// ErrorBuilder:
//
//	err := errors.NetworkError("release query failed").
//		WithCause(cause).
//		WithContext("repository", repo).
//		Build()
//
// The CLI and HTTP adapters turn classified errors into exit codes and JSON
// error payloads respectively.
package errors
