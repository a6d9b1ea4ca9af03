package models

import "time"

// Booking failure classification codes surfaced through BookingResult.
const (
	BookingCodeSlotTaken = "slotNoLongerAvailable"
	BookingCodeExternal  = "externalServiceError"
	BookingCodeInvalid   = "invalidRequest"
)

// BookingResult reports the outcome of a booking attempt.
type BookingResult struct {
	Booked    bool      `json:"booked"`
	EventID   string    `json:"eventId,omitempty"`
	EventLink string    `json:"eventLink,omitempty"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
	BookedAt  time.Time `json:"bookedAt,omitzero"`
}

// CreatedEvent is what the calendar backend returns for a new event.
type CreatedEvent struct {
	ID   string `json:"id"`
	Link string `json:"link,omitempty"`
}

// AnchorEvent is an existing calendar event used as a reference point for
// relative time expressions ("an hour before my 5 PM meeting").
type AnchorEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
