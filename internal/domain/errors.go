package domain

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a pipeline failure.
type ErrorType string

const (
	// ErrorTypeTransport indicates the approver could not be reached.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeStatus indicates the approver answered with a non-2xx status.
	ErrorTypeStatus ErrorType = "status"

	// ErrorTypeMalformedResponse indicates the approver's body could not be
	// interpreted as a decision.
	ErrorTypeMalformedResponse ErrorType = "malformed_response"

	// ErrorTypeModel indicates a completion backend failure.
	ErrorTypeModel ErrorType = "model"

	// ErrorTypeTimeout indicates an approval request exceeded its deadline.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRevisionLimit indicates the approver rejected more drafts than
	// the run allows.
	ErrorTypeRevisionLimit ErrorType = "revision_limit"

	// ErrorTypeInvalidInput indicates the run was started with unusable input.
	ErrorTypeInvalidInput ErrorType = "invalid_input"
)

// PipelineError is the canonical error produced by the gate, the backends and
// the orchestrator.
type PipelineError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode is the upstream HTTP status, when one was received
	StatusCode int `json:"status_code,omitempty"`

	// Body is a truncated copy of the upstream response body (diagnostics only)
	Body string `json:"body,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.cause
}

// NewPipelineError creates a new pipeline error.
func NewPipelineError(errType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Message: message,
	}
}

// WithStatusCode records the upstream HTTP status.
func (e *PipelineError) WithStatusCode(code int) *PipelineError {
	e.StatusCode = code
	return e
}

// WithBody records a diagnostic copy of the upstream body, capped at 512 bytes.
func (e *PipelineError) WithBody(body []byte) *PipelineError {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	e.Body = string(body)
	return e
}

// WithCause wraps an underlying error.
func (e *PipelineError) WithCause(err error) *PipelineError {
	e.cause = err
	return e
}

// Convenience constructors

// ErrTransport creates a transport error.
func ErrTransport(message string, cause error) *PipelineError {
	return NewPipelineError(ErrorTypeTransport, message).WithCause(cause)
}

// ErrStatus creates a non-success status error.
func ErrStatus(code int, body []byte) *PipelineError {
	return NewPipelineError(ErrorTypeStatus, "approver returned non-success status").
		WithStatusCode(code).
		WithBody(body)
}

// ErrMalformedResponse creates a malformed response error.
func ErrMalformedResponse(message string, body []byte) *PipelineError {
	return NewPipelineError(ErrorTypeMalformedResponse, message).WithBody(body)
}

// ErrModel creates a completion backend error.
func ErrModel(backend string, cause error) *PipelineError {
	return NewPipelineError(ErrorTypeModel, backend+" completion failed").WithCause(cause)
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string, cause error) *PipelineError {
	return NewPipelineError(ErrorTypeTimeout, message).WithCause(cause)
}

// ErrRevisionLimit creates a revision limit error.
func ErrRevisionLimit(limit int) *PipelineError {
	return NewPipelineError(ErrorTypeRevisionLimit, fmt.Sprintf("draft rejected after %d revisions", limit))
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) *PipelineError {
	return NewPipelineError(ErrorTypeInvalidInput, message)
}

// ErrorTypeOf returns the ErrorType of the first PipelineError in err's chain,
// or "" when there is none.
func ErrorTypeOf(err error) ErrorType {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}
