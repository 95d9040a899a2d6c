package errors

import (
	stderrors "errors"
	"fmt"
)

// APIError is the error type returned by services and rendered by handlers
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// EntityNotFound is returned when a vote or reply targets a missing entity
func EntityNotFound(entityType string, id uint) *APIError {
	e := newError(ErrEntityNotFound, fmt.Sprintf("%s %d not found", entityType, id))
	e.Field = "id"
	return e
}

func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

// ValidationError creates a VALIDATION_ERROR for a single field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

// InvalidVoteValue rejects anything other than +1 / -1
func InvalidVoteValue(value int) *APIError {
	e := newError(ErrInvalidVote, fmt.Sprintf("vote value must be 1 or -1, got %d", value))
	e.Field = "value"
	return e
}

func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

// Persistence wraps a storage failure. The cause is kept for logging and
// never rendered to clients.
func Persistence(op string, err error) *APIError {
	e := newError(ErrInternalError, op+" failed")
	e.cause = err
	return e
}

// As extracts an *APIError from err's chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}
