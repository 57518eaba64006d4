// Package shared contains common domain types, errors and events used across
// all learnpulse domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrExpired          = errors.New("expired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "risk", "alert", "intervention"
	Op      string // Operation that failed, e.g. "Complete", "Dismiss"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Message == t.Message
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Learner input errors
var (
	ErrEmptyUserID       = NewDomainError("learner", "Validate", ErrEmptyValue, "user id is required")
	ErrInvalidTimeRange  = NewDomainError("stats", "ParseTimeRange", ErrInvalidInput, "time range end must be after start")
	ErrStatsUnavailable  = NewDomainError("stats", "Fetch", ErrServiceUnavailable, "statistics provider unavailable")
	ErrInvalidRiskType   = NewDomainError("risk", "Validate", ErrInvalidInput, "unknown risk type")
	ErrEmptyStrategyID   = NewDomainError("intervention", "Validate", ErrEmptyValue, "strategy id is required")
	ErrInvalidProgress   = NewDomainError("intervention", "ReportProgress", ErrValueOutOfRange, "completed actions exceed total actions")
	ErrInvalidMetricName = NewDomainError("intervention", "RecordMetric", ErrEmptyValue, "metric name is required")
)

// Alert errors
var (
	ErrAlertNotFound = NewDomainError("alert", "Find", ErrNotFound, "alert not found")
)

// Intervention errors
var (
	ErrExecutionNotFound          = NewDomainError("intervention", "Find", ErrNotFound, "intervention execution not found")
	ErrInvalidExecutionTransition = NewDomainError("intervention", "Transition", ErrStateTransition, "invalid intervention status transition")
	ErrFeedbackAlreadySet         = NewDomainError("intervention", "SubmitFeedback", ErrAlreadyProcessed, "feedback already submitted")
	ErrFeedbackNotAllowed         = NewDomainError("intervention", "SubmitFeedback", ErrInvalidState, "feedback is accepted only after completion")
)

// Profile and path errors
var (
	ErrProfileNotFound = NewDomainError("profile", "Find", ErrNotFound, "learning profile not found")
	ErrPathNotFound    = NewDomainError("path", "Find", ErrNotFound, "optimized path not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsStateConflict checks if the error is a lifecycle/state error.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
