package scheduler

import (
	"errors"
	"fmt"
)

// BookingError classifies a failed booking attempt.
type BookingError struct {
	Code    string
	Message string
}

const (
	CodeSlotTaken = "slotNoLongerAvailable"
	CodeExternal  = "externalServiceError"
	CodeInvalid   = "invalidRequest"
)

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewSlotTakenError() error {
	return &BookingError{
		Code:    CodeSlotTaken,
		Message: "the selected slot is no longer available",
	}
}

func NewExternalError(cause error) error {
	return &BookingError{
		Code:    CodeExternal,
		Message: fmt.Sprintf("calendar backend failed: %v", cause),
	}
}

func NewInvalidRequestError(msg string) error {
	return &BookingError{
		Code:    CodeInvalid,
		Message: msg,
	}
}

// CodeOf extracts the booking error code, defaulting to the external
// classification for unknown errors.
func CodeOf(err error) string {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeExternal
}

// IsSlotTaken reports whether the slot was raced away by another booking.
func IsSlotTaken(err error) bool {
	return CodeOf(err) == CodeSlotTaken
}

// IsRetryable reports whether a bounded retry is safe.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeExternal
}
