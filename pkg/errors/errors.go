// Package errors provides custom error types for the assetsync system.
// These errors enable better error handling, programmatic error checking,
// and a clean separation between per-candidate data problems (which skip a
// record and continue) and transport or contract failures (which abort the
// whole run).
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the assetsync system
var (
	// ErrNotFound indicates that a requested remote record was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoIdentity indicates a candidate carries no identity anchor
	// (no serial, asset tag, MAC address, or name)
	ErrNoIdentity = errors.New("no identity anchor")

	// ErrAmbiguous indicates a lookup matched more than one remote record
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrRateLimited indicates the remote service is throttling requests
	ErrRateLimited = errors.New("rate limited")

	// ErrConnectionFailed indicates a transport-level failure that
	// persisted through the bounded retry budget
	ErrConnectionFailed = errors.New("connection failed")

	// ErrBadContract indicates the remote response is missing keys the
	// wire contract requires (total, status, payload)
	ErrBadContract = errors.New("malformed remote response")

	// ErrAPITokenRequired indicates that an API token is required but not provided
	ErrAPITokenRequired = errors.New("API token required")
)

// ValidationError represents a per-candidate validation failure. These are
// data-quality problems scoped to one record; the batch continues.
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

// AmbiguousMatchError indicates a cascade step found more than one remote
// record for a single identifying attribute. The engine never guesses among
// ambiguous candidates, so the step is abandoned and the collision reported.
type AmbiguousMatchError struct {
	Attribute string
	Value     string
	Matches   int
}

// Error implements the error interface
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d records match %s %q", e.Matches, e.Attribute, e.Value)
}

// Is implements errors.Is support
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguous || target == ErrInvalidInput
}

// NewAmbiguousMatchError creates a new AmbiguousMatchError
func NewAmbiguousMatchError(attribute, value string, matches int) *AmbiguousMatchError {
	return &AmbiguousMatchError{Attribute: attribute, Value: value, Matches: matches}
}

// APIError represents a non-success response from the remote service
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Endpoint, e.Message)
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
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}
}

// ConnectionError represents a transport-level failure. Persistent
// connection failures are treated as fatal infrastructure failures for the
// whole run, not per-record errors.
type ConnectionError struct {
	Endpoint string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(endpoint string, attempts int, err error) *ConnectionError {
	return &ConnectionError{Endpoint: endpoint, Attempts: attempts, Err: err}
}

// ContractError indicates the remote response does not match the expected
// wire contract. This means the remote API changed rather than one record
// being dirty, so it aborts the run.
type ContractError struct {
	Endpoint string
	Missing  string
	Body     string
}

// Error implements the error interface
func (e *ContractError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("malformed response from %s: missing %q", e.Endpoint, e.Missing)
	}
	return fmt.Sprintf("malformed response from %s", e.Endpoint)
}

// Is implements errors.Is support
func (e *ContractError) Is(target error) bool {
	return target == ErrBadContract
}

// NewContractError creates a new ContractError
func NewContractError(endpoint, missing, body string) *ContractError {
	return &ContractError{Endpoint: endpoint, Missing: missing, Body: body}
}

// ResourceError represents a failed operation against a remote entity
type ResourceError struct {
	Operation string // "create", "update", "fetch", "checkout", "checkin"
	Resource  string // "hardware", "models", "users", ...
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
	return &ConfigError{Component: component, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is scoped to one candidate. Callers use
// this to decide whether to skip the record or abort the batch.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAmbiguous checks if an error is an ambiguous multi-match
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsFatal checks if an error must abort the run: persistent connection
// failure or a broken remote contract.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrBadContract)
}
