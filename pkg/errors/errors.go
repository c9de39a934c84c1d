// Package errors provides custom error types for the hubsync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
//
// The sync core distinguishes three failure classes:
//   - FetchError: a page could not be read or decoded; the entity step aborts.
//   - PushError: a batch response was missing or malformed; the push aborts.
//   - RecordError: one record failed on one side; it is isolated and recorded
//     on the record's correlation.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the hubsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates that a remote system is temporarily unavailable
	ErrUnavailable = errors.New("remote unavailable")

	// ErrMalformedResponse indicates an empty or undecodable remote response
	ErrMalformedResponse = errors.New("malformed response")

	// ErrLocked indicates that another sync run holds the organization lock
	ErrLocked = errors.New("organization locked")

	// ErrNotImplemented indicates that a feature is not yet implemented
	ErrNotImplemented = errors.New("not implemented")
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

// APIError represents a non-success HTTP answer from the Hub or External API.
type APIError struct {
	System     string // "hub" or the external system name
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    message,
	}
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

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "update", "find", "open"
	Resource  string // "correlation", "synchronization", "store"
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

// FetchError is raised when a Hub page is missing, empty or not decodable.
// It aborts the current entity step.
type FetchError struct {
	Entity  string
	Page    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %s", e.Entity, e.Page, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrMalformedResponse && e.Err == nil
}

// NewFetchError creates a new FetchError
func NewFetchError(entity string, page int, message string, err error) *FetchError {
	return &FetchError{Entity: entity, Page: page, Message: message, Err: err}
}

// PushError is raised when a Hub batch response is missing or malformed.
// It aborts the remaining batches of the push call.
type PushError struct {
	Entity  string
	Batch   int
	Message string
	Err     error
}

// Error implements the error interface
func (e *PushError) Error() string {
	return fmt.Sprintf("push %s batch %d: %s", e.Entity, e.Batch, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *PushError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PushError) Is(target error) bool {
	return target == ErrMalformedResponse && e.Err == nil
}

// NewPushError creates a new PushError
func NewPushError(entity string, batch int, message string, err error) *PushError {
	return &PushError{Entity: entity, Batch: batch, Message: message, Err: err}
}

// RecordError describes the failure of a single record push.
// It never aborts a run; its message is persisted on the correlation.
type RecordError struct {
	Side       string // "hub" or "external"
	Entity     string
	ID         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *RecordError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("push %s %s %s (status %d): %s", e.Side, e.Entity, e.ID, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("push %s %s %s: %s", e.Side, e.Entity, e.ID, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *RecordError) Unwrap() error {
	return e.Err
}

// SyncError represents an error during the sync of one entity type
type SyncError struct {
	Organization string
	Entity       string
	Err          error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("sync error for organization %s entity %s: %v", e.Organization, e.Entity, e.Err)
	}
	return fmt.Sprintf("sync error for organization %s: %v", e.Organization, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(organization, entity string, err error) *SyncError {
	return &SyncError{
		Organization: organization,
		Entity:       entity,
		Err:          err,
	}
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

// IsUnavailable checks if an error indicates the remote is unavailable
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsFatalFetch reports whether err aborts an entity step during fetch.
func IsFatalFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsFatalPush reports whether err aborts a push call.
func IsFatalPush(err error) bool {
	var pe *PushError
	return errors.As(err, &pe)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(system string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
