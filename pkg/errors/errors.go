// Package errors provides custom error types for the scansync system.
// Every failure a reconciliation run can end with has a sentinel that
// callers match with errors.Is, and a typed error that carries the
// details (study, file, fingerprints, status code) for reporting.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
var As = errors.As

// Common sentinel errors for the scansync system
var (
	// ErrNotFound indicates that a requested resource (usually a study) was not found
	ErrNotFound = errors.New("not found")

	// ErrFetchFailed indicates that the remote manifest could not be retrieved
	ErrFetchFailed = errors.New("fetch failed")

	// ErrIntegrityMismatch indicates that downloaded bytes do not hash to the declared fingerprint
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrCatalogWriteRejected indicates that the content classifier refused a verified file
	ErrCatalogWriteRejected = errors.New("catalog write rejected")

	// ErrEmptySelection indicates that filtering and bounding left nothing to do
	ErrEmptySelection = errors.New("empty selection")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// APIError represents a non-success response (or a transport failure)
// while talking to a remote endpoint such as the manifest server.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request to %s failed: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support. Every APIError is a fetch failure.
func (e *APIError) Is(target error) bool {
	return target == ErrFetchFailed
}

// NewAPIError creates a new APIError
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// IntegrityError reports a downloaded file whose fingerprint does not
// match the one declared by the manifest.
type IntegrityError struct {
	StudyID  string
	File     string
	Expected string
	Observed string
}

// Error implements the error interface
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hash verification failed for %s in study %s: expected %s, observed %s",
		e.File, e.StudyID, e.Expected, e.Observed)
}

// Is implements errors.Is support
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityMismatch
}

// NewIntegrityError creates a new IntegrityError
func NewIntegrityError(studyID, file, expected, observed string) *IntegrityError {
	return &IntegrityError{
		StudyID:  studyID,
		File:     file,
		Expected: expected,
		Observed: observed,
	}
}

// RejectedError reports a verified file that the catalog refused to record.
type RejectedError struct {
	StudyID string
	File    string
	Backend string
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s catalog rejected %s for study %s", e.Backend, e.File, e.StudyID)
	}
	return fmt.Sprintf("catalog rejected %s for study %s", e.File, e.StudyID)
}

// Is implements errors.Is support
func (e *RejectedError) Is(target error) bool {
	return target == ErrCatalogWriteRejected
}

// NewRejectedError creates a new RejectedError
func NewRejectedError(studyID, file, backend string) *RejectedError {
	return &RejectedError{StudyID: studyID, File: file, Backend: backend}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", ...
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "rename", "lock", "download"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "load", "query", "index"
	Resource  string // "catalog", "index", "request", "study"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFetchFailed checks if an error is a manifest fetch failure
func IsFetchFailed(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// IsIntegrityMismatch checks if an error is a fingerprint mismatch
func IsIntegrityMismatch(err error) bool {
	return errors.Is(err, ErrIntegrityMismatch)
}

// IsRejected checks if an error is a catalog write rejection
func IsRejected(err error) bool {
	return errors.Is(err, ErrCatalogWriteRejected)
}

// IsEmptySelection checks if an error signals an empty selection
func IsEmptySelection(err error) bool {
	return errors.Is(err, ErrEmptySelection)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCanceled checks if an error is a cancellation error, including a
// canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapFetch wraps a transport error as an APIError so it matches ErrFetchFailed.
func WrapFetch(endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Endpoint: endpoint,
		Message:  err.Error(),
		Err:      err,
	}
}
