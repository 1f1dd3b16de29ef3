package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors classifying every gateway failure.
// Use errors.Is against these; *APIError unwraps to exactly one of them.
var (
	// ErrValidation indicates input rejected before dispatch or by the server
	ErrValidation = errors.New("invalid input")

	// ErrNetwork indicates no response was received (unreachable or timed out)
	ErrNetwork = errors.New("catalog server is unreachable")

	// ErrServer indicates the server answered with a fault status
	ErrServer = errors.New("catalog server error")

	// ErrNotFound indicates the target entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrAuth indicates the credential is missing, invalid or expired
	ErrAuth = errors.New("authentication token is invalid")
)

// APIError carries the context of a failed gateway call.
type APIError struct {
	Kind    error  // One of the sentinel errors above
	Op      string // Operation, e.g. "list albums"
	Status  int    // HTTP status, 0 when no response was received
	Message string // Server or validation message, may be empty
	Err     error  // Underlying transport/decoding error, may be nil
}

func (e *APIError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the classification and the underlying cause
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Validation builds a client-side validation error
func Validation(op, message string) error {
	return &APIError{Kind: ErrValidation, Op: op, Message: message}
}

// Describe maps an error to a stable, user-presentable message.
// Raw transport details never leak into the UI through this function.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Request cancelled."
	case errors.Is(err, ErrValidation):
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return "Invalid input: " + apiErr.Message
		}
		return "Invalid input. Check the form and try again."
	case errors.Is(err, ErrAuth):
		return "Your session has expired. Run `crate login` and retry."
	case errors.Is(err, ErrNotFound):
		return "It no longer exists on the server."
	case errors.Is(err, ErrServer):
		return "The catalog server failed to handle the request."
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return "Could not reach the catalog server."
	default:
		return "Something went wrong."
	}
}
