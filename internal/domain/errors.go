package domain

import (
	"errors"
	"fmt"
	"time"
)

// MCPError represents a standardized error response
type MCPError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput     = "INVALID_INPUT"
	ErrDatabaseError    = "DATABASE_ERROR"
	ErrExternalAPI      = "EXTERNAL_API_ERROR"
	ErrAssessment       = "ASSESSMENT_ERROR"
	ErrInference        = "INFERENCE_FAILURE"
	ErrCalibration      = "INVALID_CALIBRATION"
	ErrRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrValidation       = "VALIDATION_ERROR"
	ErrProfileNotFound  = "PROFILE_NOT_FOUND"
	ErrFeedbackNotFound = "FEEDBACK_NOT_FOUND"
	ErrAssessmentGone   = "ASSESSMENT_NOT_FOUND"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewMCPError creates a new MCPError with timestamp
func NewMCPError(code, message, details, requestID string) *MCPError {
	return &MCPError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// InferenceError is returned by posterior queries that cannot produce a
// distribution: unknown variables, out-of-range states, evidence on the
// query variable, or evidence with zero probability under the model.
type InferenceError struct {
	Reason   string `json:"reason"`
	Variable string `json:"variable,omitempty"`
}

// Error implements the error interface
func (e *InferenceError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("inference failure: %s", e.Reason)
	}
	return fmt.Sprintf("inference failure on %q: %s", e.Variable, e.Reason)
}

// Is makes errors.Is(err, ErrInferenceFailure) match any InferenceError.
func (e *InferenceError) Is(target error) bool {
	return target == ErrInferenceFailure
}

// NewInferenceError creates a new InferenceError
func NewInferenceError(variable, reason string) *InferenceError {
	return &InferenceError{Variable: variable, Reason: reason}
}

// ErrorCode maps an error from the assessment pipeline onto a surface code.
func ErrorCode(err error) string {
	var validation *ValidationError
	var mcpErr *MCPError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &mcpErr):
		return mcpErr.Code
	case errors.As(err, &validation):
		return ErrValidation
	case errors.Is(err, ErrInferenceFailure):
		return ErrInference
	case errors.Is(err, ErrInvalidCalibration):
		return ErrCalibration
	case errors.Is(err, ErrUnknownProfile):
		return ErrProfileNotFound
	case errors.Is(err, ErrUnknownAssessment):
		return ErrAssessmentGone
	case errors.Is(err, ErrNotFound):
		return ErrFeedbackNotFound
	default:
		return ErrInternalServer
	}
}
