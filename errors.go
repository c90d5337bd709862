package scriptstore

import "errors"

// ErrNotFound is returned when a referenced script does not exist.
var ErrNotFound = errors.New("script not found")

// ValidationError reports a client request missing required fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

const (
	msgCreateRequired = "Name and content are required"
	msgUpdateRequired = "ID and content are required"
	msgIDRequired     = "ID is required"
)

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
