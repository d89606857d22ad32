// Package errors provides classified error primitives used across docsite.
//
// A ClassifiedError carries a category, a severity, a retry hint and a
// structured context map. Errors are created through the fluent builder:
//
//	err := errors.NewError(errors.CategoryRoutes, "duplicate route path").
//		WithContext("path", p).
//		Build()
//
// The CLI and HTTP adapters translate classified errors into exit codes and
// HTTP status codes respectively.
package errors
