package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Input errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// Conversion errors
	ErrCodeConversionFailed ErrorCode = "CONVERSION_FAILED"
	ErrCodeEncoderNotFound  ErrorCode = "ENCODER_NOT_FOUND"

	// Viewer handoff errors
	ErrCodeHandoffBlocked   ErrorCode = "HANDOFF_BLOCKED"
	ErrCodeHandoffCancelled ErrorCode = "HANDOFF_CANCELLED"
	ErrCodeHandoffFailed    ErrorCode = "HANDOFF_FAILED"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Output errors
	ErrCodeStorageFailed ErrorCode = "STORAGE_FAILED"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// TraceError represents a structured error with context
type TraceError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *TraceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *TraceError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *TraceError) WithDetail(key string, value interface{}) *TraceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *TraceError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new TraceError
func New(code ErrorCode, message string) *TraceError {
	return &TraceError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a TraceError
func Wrap(err error, code ErrorCode, message string) *TraceError {
	return &TraceError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific TraceError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error.
// The first TraceError found while unwrapping wins.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	traceErr, ok := err.(*TraceError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return traceErr.Code
}

// As returns the first TraceError in err's chain.
func As(err error) (*TraceError, bool) {
	for err != nil {
		if traceErr, ok := err.(*TraceError); ok {
			return traceErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// HasCode reports whether any TraceError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if traceErr, ok := err.(*TraceError); ok && traceErr.Code == code {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
