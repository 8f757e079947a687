package models

import "fmt"

// ValidationError reports input the analysis cannot proceed with. Its message is meant for
// the caller; engine errors are folded into the message rather than wrapped.
type ValidationError struct {
	Message string
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with code %s not found", e.Resource, e.ID)
}
