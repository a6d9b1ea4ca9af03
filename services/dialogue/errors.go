package dialogue

import (
	"errors"
	"fmt"
)

const (
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeInvalidSelection = "INVALID_SELECTION"
	CodeNoPendingSlots   = "NO_PENDING_SLOTS"
	CodeStoreFailure     = "STORE_FAILURE"
)

// DialogueError is returned for turn-level failures the caller must handle
// (as opposed to conversational setbacks, which come back as assistant text).
type DialogueError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DialogueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewSessionNotFoundError(sessionID string) error {
	return &DialogueError{
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("no active conversation for session %q", sessionID),
	}
}

func NewInvalidSelectionError(index, count int) error {
	return &DialogueError{
		Code:    CodeInvalidSelection,
		Message: fmt.Sprintf("selection %d is out of range, expected 1 to %d", index, count),
	}
}

func NewNoPendingSlotsError() error {
	return &DialogueError{
		Code:    CodeNoPendingSlots,
		Message: "there are no proposed slots awaiting selection",
	}
}

func NewStoreError(cause error) error {
	return &DialogueError{
		Code:    CodeStoreFailure,
		Message: fmt.Sprintf("session store failed: %v", cause),
	}
}

// CodeOf extracts the dialogue error code, defaulting to STORE_FAILURE for
// unclassified errors.
func CodeOf(err error) string {
	var de *DialogueError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeStoreFailure
}

// IsSessionNotFound reports whether err means the session does not exist.
func IsSessionNotFound(err error) bool {
	var de *DialogueError
	return errors.As(err, &de) && de.Code == CodeSessionNotFound
}

// IsInvalidSelection reports whether err means the chosen slot index was bad.
func IsInvalidSelection(err error) bool {
	var de *DialogueError
	return errors.As(err, &de) && (de.Code == CodeInvalidSelection || de.Code == CodeNoPendingSlots)
}
