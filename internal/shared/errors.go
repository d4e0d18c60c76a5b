package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates client input failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates the viewer role may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrStatusNotConfigured occurs when a required status id cannot be resolved from the directory.
	ErrStatusNotConfigured = errors.New("status id not found")
	// ErrActionNotPermitted occurs when the deal's current stage hides the requested action.
	ErrActionNotPermitted = errors.New("action not available for the deal's current status")
	// ErrConflict occurs when an identical submission is already in flight.
	ErrConflict = errors.New("submission already in progress")
)

// FieldErrors carries inline validation messages keyed by form field.
type FieldErrors map[string]string

// ValidationError wraps ErrValidation with per-field messages.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

// Unwrap exposes ErrValidation to errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: FieldErrors{field: message}}
}

// ActionError records a failed remote call for a user-facing action.
type ActionError struct {
	Action   string
	Fallback string
	Message  string
	Err      error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return e.Action
	}
	return e.Action + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the server-provided message when present, else the generic fallback.
func (e *ActionError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Fallback
}
