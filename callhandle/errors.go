package callhandle

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField matches any *MissingFieldError.
	ErrMissingField = errors.New("required parameter absent")

	// ErrRendered is returned once a Controller has emitted its response.
	ErrRendered = errors.New("response already rendered")
)

// MissingFieldError reports a required event parameter that the platform
// did not send.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
