package calendar

import (
	"errors"
	"fmt"
)

// RequestError marks a backend rejection that retrying cannot fix
// (malformed event, permission denied). Everything else coming out of the
// adapter is treated as transient by callers.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("calendar rejected request: %s", e.Message)
}

func NewRequestError(msg string) error {
	return &RequestError{Message: msg}
}

// IsRequestError reports whether err is a non-retryable backend rejection.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
