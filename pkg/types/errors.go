package types

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned when a required credential or identifier is missing.
// It is raised before any network call is attempted.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s is required", e.Key)
}

// ConnectionError is returned when the backend rejects the handshake
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a referenced record does not exist
type NotFoundError struct {
	Kind RecordKind
	ID   string
}

func (e *NotFoundError) Error() string {
	kind := "record"
	switch e.Kind {
	case RecordKindLead:
		kind = "lead"
	case RecordKindEmail:
		kind = "email"
	}
	return fmt.Sprintf("%s not found: %s", kind, e.ID)
}

// From checks if the given error is a NotFoundError
func (e *NotFoundError) From(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// InvalidFilterError is returned when a filter expression is malformed
type InvalidFilterError struct {
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter: %s", e.Reason)
}

// UnknownFieldError is returned when a field is not declared for a kind or has no
// native mapping for a backend
type UnknownFieldError struct {
	Kind    RecordKind
	Field   string
	Backend string
}

func (e *UnknownFieldError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("unknown field %q for %s on backend %s", e.Field, e.Kind, e.Backend)
	}
	return fmt.Sprintf("unknown field %q for %s", e.Field, e.Kind)
}

// BackendError wraps a transport or API failure on insert, update, archive or query
type BackendError struct {
	Op     string
	Status int
	Code   string
	Err    error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status != 0 && e.Code != "":
		return fmt.Sprintf("%s failed (%d %s): %v", e.Op, e.Status, e.Code, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s failed (%d): %v", e.Op, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// LockError is returned when an advisory lock cannot be obtained
type LockError struct {
	Key string
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("failed to acquire lock %s: %v", e.Key, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsConnectionError(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

func IsInvalidFilter(err error) bool {
	var target *InvalidFilterError
	return errors.As(err, &target)
}

func IsUnknownField(err error) bool {
	var target *UnknownFieldError
	return errors.As(err, &target)
}

func IsBackendError(err error) bool {
	var target *BackendError
	return errors.As(err, &target)
}

func IsLockError(err error) bool {
	var target *LockError
	return errors.As(err, &target)
}
