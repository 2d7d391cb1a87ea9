package models

import "errors"

var (
	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials is the single login failure; it never says
	// whether the username exists.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports malformed or out-of-range input. Its message is
// safe to show to the caller as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
