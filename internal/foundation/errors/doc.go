// Package errors provides the classified error primitives used across docrestyle.
//
// Every error that crosses a package boundary is a ClassifiedError carrying a
// category, a severity, a retry hint and a small context map. The CLI and HTTP
// adapters translate those into exit codes and status codes.
//
//	err := errors.WrapError(ioErr, errors.CategoryFileSystem, "failed to write page").
//		WithContext("path", path).
//		Build()
package errors
