// Package calendar wraps the external calendar backend behind small
// capability interfaces so the scheduling engine never touches the wire
// format directly.
package calendar

import (
	"context"
	"time"

	"schedulai/models"
)

// AnchorLookup finds existing events matching a textual description, used
// to ground relative time expressions. All events starting at or after ref
// that match are returned; the resolver applies its own tie-break.
type AnchorLookup interface {
	FindEvents(ctx context.Context, description string, ref time.Time) ([]models.AnchorEvent, error)
}

// AvailabilityProvider returns the busy intervals of the given attendees
// (plus the primary calendar) that overlap the window.
type AvailabilityProvider interface {
	BusyIntervals(ctx context.Context, attendees []string, window models.Window) ([]models.Window, error)
}

// EventCreator creates a calendar event for a confirmed slot. The
// idempotency token must be recorded on the event so a retried request can
// find the original instead of duplicating it.
type EventCreator interface {
	CreateEvent(ctx context.Context, slot models.Slot, purpose string, attendees []string, idempotencyToken string) (models.CreatedEvent, error)
	// FindEventByToken returns the event previously created with the given
	// token, or nil if none exists.
	FindEventByToken(ctx context.Context, idempotencyToken string) (*models.CreatedEvent, error)
}

// Service bundles the three capabilities a full backend provides.
type Service interface {
	AnchorLookup
	AvailabilityProvider
	EventCreator
}
