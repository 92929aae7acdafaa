// Package errors provides custom error types for fitler.
// Adapters, the store and the reconciliation engine return these so callers
// can classify failures with errors.Is instead of matching strings.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for fitler.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates that a source adapter could not be reached
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAuthExpired indicates that a source rejected its credentials
	ErrAuthExpired = errors.New("auth expired")

	// ErrRateLimited indicates that a source throttled the request
	ErrRateLimited = errors.New("rate limited")

	// ErrAmbiguousMatch indicates that more than one record matched equally well
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrMergeConflict indicates that two sources disagree on a non-empty field
	ErrMergeConflict = errors.New("merge conflict")

	// ErrLedgerCorruption indicates the sync ledger disagrees with stored records
	ErrLedgerCorruption = errors.New("ledger corruption")

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

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
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
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error returned by a remote source such as Strava.
// The status code decides which sentinel it matches.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return target == ErrAuthExpired
	case e.StatusCode >= 500:
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// SourceError records a failed fetch from one source for one period.
// It is the error attached to a per-source sync result.
type SourceError struct {
	Source string
	Period string
	Err    error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Period != "" {
		return fmt.Sprintf("source %s failed for %s: %v", e.Source, e.Period, e.Err)
	}
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support. Any source failure counts as unavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceError creates a new SourceError
func NewSourceError(source, period string, err error) *SourceError {
	return &SourceError{Source: source, Period: period, Err: err}
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

// LedgerCorruptionError reports a ledger row that claims a period was synced
// while the store holds none of the links that sync produced.
type LedgerCorruptionError struct {
	Source   string
	Period   string
	Expected int
	Found    int
}

// Error implements the error interface
func (e *LedgerCorruptionError) Error() string {
	return fmt.Sprintf("ledger corruption for %s in %s: ledger recorded %d links, store has %d",
		e.Source, e.Period, e.Expected, e.Found)
}

// Is implements errors.Is support
func (e *LedgerCorruptionError) Is(target error) bool {
	return target == ErrLedgerCorruption
}

// ConflictError describes a field two sources disagree on.
// The kept value stays on the record; the rejected value is only reported.
type ConflictError struct {
	RecordID int64
	Field    string
	Kept     string
	KeptBy   string
	Rejected string
	Source   string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	id := "new record"
	if e.RecordID != 0 {
		id = fmt.Sprintf("record %d", e.RecordID)
	}
	return fmt.Sprintf("merge conflict on %s field %s: kept %q from %s, rejected %q from %s",
		id, e.Field, e.Kept, e.KeptBy, e.Rejected, e.Source)
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// AmbiguousMatchError describes a raw activity that matched several records
// equally well. The oldest record wins.
type AmbiguousMatchError struct {
	Source     string
	SourceID   string
	Candidates []int64
	Chosen     int64
}

// Error implements the error interface
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for %s activity %s: candidates %v, chose %d",
		e.Source, e.SourceID, e.Candidates, e.Chosen)
}

// Is implements errors.Is support
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAuthExpired checks if an error is a credential error
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsTimeout checks if an error is a timeout error, including context deadlines
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// IsSourceUnavailable checks if an error indicates source unavailability
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsLedgerCorruption checks if an error is a ledger corruption error
func IsLedgerCorruption(err error) bool {
	return errors.Is(err, ErrLedgerCorruption)
}

// IsRetryable reports whether retrying the same sync later may succeed.
// Auth failures need user action first, so they are not retryable.
func IsRetryable(err error) bool {
	if err == nil || IsAuthExpired(err) {
		return false
	}
	return IsRateLimited(err) || IsTimeout(err) || IsSourceUnavailable(err)
}

// Reason returns a short, stable classification of err for metrics labels
// and report output.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsCanceled(err):
		return "canceled"
	case IsTimeout(err):
		return "timeout"
	case IsAuthExpired(err):
		return "auth_expired"
	case IsRateLimited(err):
		return "rate_limited"
	case IsLedgerCorruption(err):
		return "ledger_corruption"
	case IsValidationError(err):
		return "invalid_input"
	case IsNotFound(err):
		return "not_found"
	case IsSourceUnavailable(err):
		return "unavailable"
	}
	return "error"
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml"
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
	Operation string // "read", "write", "create", "delete", "open", "close"
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

// ResourceError represents an error during store operations
type ResourceError struct {
	Operation string // "load", "upsert", "delete", "reset", "mark"
	Resource  string // "record", "link", "ledger"
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

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

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

// WrapSource wraps an error as a SourceError
func WrapSource(source, period string, err error) error {
	if err == nil {
		return nil
	}
	return NewSourceError(source, period, err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
