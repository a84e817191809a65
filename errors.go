package browserflow

import (
	"errors"
	"fmt"
)

// Error type constants for classification and matching
const (
	// ErrorTypeAll acts as a wildcard that matches any error
	ErrorTypeAll = "all"

	// ErrorTypeNotFound indicates a flow name has no stored document
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMalformedDocument indicates stored bytes failed to parse or
	// the required history field is absent or empty
	ErrorTypeMalformedDocument = "malformed_document"

	// ErrorTypeNoParameters indicates a parameterized replay was requested
	// but extraction yielded nothing substitutable
	ErrorTypeNoParameters = "no_parameters"

	// ErrorTypeRecordingConflict indicates a recording was started while
	// another one was active
	ErrorTypeRecordingConflict = "recording_conflict"

	// ErrorTypeExecution indicates the agent executor failed or raised.
	// Unknown errors are classified as execution errors by default: every
	// failure is surfaced once to the caller and never retried here.
	ErrorTypeExecution = "execution_error"
)

// FlowError represents a structured error with classification.
// It supports Go's error wrapping patterns with Unwrap() method.
type FlowError struct {
	Type    string      `json:"type"`
	Cause   string      `json:"cause"`
	Details interface{} `json:"details,omitempty"`
	Wrapped error       `json:"-"` // Original error being wrapped
}

// Error implements the error interface
func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *FlowError) Unwrap() error {
	return e.Wrapped
}

// NewFlowError creates a new FlowError with the specified type and cause.
func NewFlowError(errorType, cause string) *FlowError {
	return &FlowError{
		Type:  errorType,
		Cause: cause,
	}
}

// WrapFlowError wraps an existing error with a classification type.
func WrapFlowError(errorType string, err error) *FlowError {
	return &FlowError{
		Type:    errorType,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// ClassifyError attempts to classify a regular error into a FlowError
func ClassifyError(err error) *FlowError {
	// If the error is already a FlowError, return it
	var flowError *FlowError
	if errors.As(err, &flowError) {
		return flowError
	}
	// Default to an execution error
	return &FlowError{
		Type:    ErrorTypeExecution,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// MatchesErrorType checks if an error matches a specified error type pattern
func MatchesErrorType(err error, errorType string) bool {
	if errorType == ErrorTypeAll {
		return true
	}
	return ClassifyError(err).Type == errorType
}

// IsNotFound reports whether the error indicates a missing flow document.
func IsNotFound(err error) bool {
	return MatchesErrorType(err, ErrorTypeNotFound)
}

// IsMalformedDocument reports whether the error indicates an unparseable or
// unreplayable flow document.
func IsMalformedDocument(err error) bool {
	return MatchesErrorType(err, ErrorTypeMalformedDocument)
}
