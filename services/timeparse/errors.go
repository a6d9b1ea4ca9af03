package timeparse

import (
	"errors"
	"fmt"
)

// ResolutionError is returned when a time expression cannot be converted
// into a concrete window.
type ResolutionError struct {
	Code    string
	Message string
}

const (
	CodeUnparseable    = "unparseable"
	CodeAnchorNotFound = "anchorNotFound"
)

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewUnparseableError(expr string) error {
	return &ResolutionError{
		Code:    CodeUnparseable,
		Message: fmt.Sprintf("could not understand the time expression %q", expr),
	}
}

func NewAnchorNotFoundError(description string) error {
	return &ResolutionError{
		Code:    CodeAnchorNotFound,
		Message: fmt.Sprintf("could not find a calendar event matching %q", description),
	}
}

// IsUnparseable reports whether err is an unparseable-expression error.
func IsUnparseable(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Code == CodeUnparseable
}

// IsAnchorNotFound reports whether err is a missing-anchor error.
func IsAnchorNotFound(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Code == CodeAnchorNotFound
}
