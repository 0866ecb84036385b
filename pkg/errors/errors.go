// Package errors provides structured error types for edgeprint.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, API, and pipeline workers
//   - Machine-readable error codes for programmatic handling
//   - A fixed failure taxonomy (validation, transient, degraded, numeric)
//   - Context about which chunk, leaf, or edge position failed
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (never retried)
//   - STORAGE_*, RETRIES_*: Transient I/O failures and exhausted retries
//   - SLICE_*: Degraded-feature failures absorbed by the compositor
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDimensions, "trim width must be positive, got %v", w)
//	if errors.Is(err, errors.ErrCodeInvalidDimensions) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors and attach context
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "download %s", path).WithChunk(3)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidDimensions   Code = "INVALID_DIMENSIONS"
	ErrCodeInvalidPageCount    Code = "INVALID_PAGE_COUNT"
	ErrCodeInvalidBleedType    Code = "INVALID_BLEED_TYPE"
	ErrCodeInvalidPageType     Code = "INVALID_PAGE_TYPE"
	ErrCodeInvalidEdgePosition Code = "INVALID_EDGE_POSITION"
	ErrCodeInvalidScaleMode    Code = "INVALID_SCALE_MODE"
	ErrCodeInvalidColor        Code = "INVALID_COLOR"
	ErrCodeInvalidChunkCount   Code = "INVALID_CHUNK_COUNT"
	ErrCodeInvalidDocument     Code = "INVALID_DOCUMENT"
	ErrCodeInvalidImage        Code = "INVALID_IMAGE"
	ErrCodeInvalidPath         Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeJobNotFound Code = "JOB_NOT_FOUND"

	// Transient I/O errors
	ErrCodeStorage          Code = "STORAGE_ERROR"
	ErrCodeNetwork          Code = "NETWORK_ERROR"
	ErrCodeRetriesExhausted Code = "RETRIES_EXHAUSTED"

	// Degraded-feature errors
	ErrCodeSliceUnavailable Code = "SLICE_UNAVAILABLE"

	// Numeric non-convergence
	ErrCodeNonConvergence Code = "NON_CONVERGENCE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Category groups error codes by how callers must react to them.
type Category string

// Failure categories.
const (
	// CategoryValidation errors are fatal, surfaced immediately, never retried.
	CategoryValidation Category = "validation"
	// CategoryTransient errors are retried with bounded backoff, then fatal.
	CategoryTransient Category = "transient"
	// CategoryDegraded errors are logged and absorbed with a placeholder.
	CategoryDegraded Category = "degraded"
	// CategoryNumeric errors are clamped to a best estimate.
	CategoryNumeric Category = "numeric"
	// CategoryNotFound errors report a missing resource.
	CategoryNotFound Category = "not_found"
	// CategoryInternal errors are everything else.
	CategoryInternal Category = "internal"
)

// CategoryOf returns the failure category for a code.
func CategoryOf(code Code) Category {
	switch {
	case strings.HasPrefix(string(code), "INVALID_"):
		return CategoryValidation
	case code == ErrCodeNotFound || code == ErrCodeJobNotFound:
		return CategoryNotFound
	case code == ErrCodeStorage || code == ErrCodeNetwork || code == ErrCodeRetriesExhausted:
		return CategoryTransient
	case code == ErrCodeSliceUnavailable:
		return CategoryDegraded
	case code == ErrCodeNonConvergence:
		return CategoryNumeric
	default:
		return CategoryInternal
	}
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	// Context about the unit of work that failed. Chunk and Leaf are -1 when unset.
	Chunk int
	Leaf  int
	Edge  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if where := e.where(); where != "" {
		b.WriteString(" (")
		b.WriteString(where)
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) where() string {
	var parts []string
	if e.Chunk >= 0 {
		parts = append(parts, fmt.Sprintf("chunk %d", e.Chunk))
	}
	if e.Leaf >= 0 {
		parts = append(parts, fmt.Sprintf("leaf %d", e.Leaf))
	}
	if e.Edge != "" {
		parts = append(parts, "edge "+e.Edge)
	}
	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the failure category of the error's code.
func (e *Error) Category() Category {
	return CategoryOf(e.Code)
}

// WithChunk records the chunk index the error belongs to.
func (e *Error) WithChunk(index int) *Error {
	e.Chunk = index
	return e
}

// WithLeaf records the leaf index the error belongs to.
func (e *Error) WithLeaf(index int) *Error {
	e.Leaf = index
	return e
}

// WithEdge records the edge position the error belongs to.
func (e *Error) WithEdge(position string) *Error {
	e.Edge = position
	return e
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Chunk:   -1,
		Leaf:    -1,
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
		Chunk:   -1,
		Leaf:    -1,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As is errors.As, re-exported so callers need only this package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory returns the failure category of err.
// Errors that are not *Error are CategoryInternal.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category()
	}
	return CategoryInternal
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if where := e.where(); where != "" {
			return e.Message + " (" + where + ")"
		}
		return e.Message
	}
	return err.Error()
}
