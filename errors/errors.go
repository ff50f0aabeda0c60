// Package errors defines the error taxonomy shared by the sync pipeline.
// Snapshot acquisition failures (connectivity, auth) abort a run before any
// mutation; everything else is isolated to the entity or partition it hit.
package errors

import (
	"errors"
	"fmt"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Sentinel errors for programmatic checks via errors.Is.
var (
	// ErrConnectivity indicates one of the two systems could not be reached.
	ErrConnectivity = errors.New("connectivity failure")

	// ErrAuth indicates a session or token was rejected.
	ErrAuth = errors.New("authentication failure")

	// ErrLookup indicates a required partition or id mapping is missing.
	ErrLookup = errors.New("lookup failure")

	// ErrValidation indicates a record failed structural checks before create.
	ErrValidation = errors.New("validation failure")

	// ErrApply indicates an individual mutating call failed at the target.
	ErrApply = errors.New("apply failure")
)

// APIError represents a failed HTTP or RPC exchange with GLPI or Zabbix.
type APIError struct {
	System     string // "glpi" or "zabbix"
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps HTTP status classes onto the sentinel taxonomy.
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return target == ErrAuth
	}
	return target == ErrConnectivity
}

// NewAPIError creates an APIError for the given system.
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{System: system, StatusCode: statusCode, Message: message}
}

// LookupError reports a name that could not be resolved to a target-native id.
type LookupError struct {
	Kind string // "proxy", "group", "template", "host"
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q is unknown to the target system", e.Kind, e.Name)
}

// Is implements errors.Is support.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

// NewLookupError creates a LookupError.
func NewLookupError(kind, name string) *LookupError {
	return &LookupError{Kind: kind, Name: name}
}

// ValidationError reports a source record that must be skipped, not created.
type ValidationError struct {
	Host   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("host %q failed validation: %s", e.Host, e.Reason)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError.
func NewValidationError(host, reason string) *ValidationError {
	return &ValidationError{Host: host, Reason: reason}
}

// ApplyError wraps a failed create, delete or update call for one entity.
type ApplyError struct {
	Op   string // "create", "delete", "update"
	Host string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Op, e.Host, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ApplyError) Is(target error) bool {
	return target == ErrApply
}

// NewApplyError creates an ApplyError.
func NewApplyError(op, host string, err error) *ApplyError {
	return &ApplyError{Op: op, Host: host, Err: err}
}
