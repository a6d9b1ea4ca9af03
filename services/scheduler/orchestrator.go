// Package scheduler commits a selected slot to the external calendar,
// handling conflicts, bounded retries, and idempotency.
package scheduler

import (
	"context"
	"time"

	"schedulai/models"
	"schedulai/services/calendar"
	"schedulai/utils"

	"go.uber.org/zap"
)

// Orchestrator commits a selected slot to the calendar.
type Orchestrator interface {
	Book(ctx context.Context, slot models.Slot, purpose string, attendees []string, token string) (models.BookingResult, error)
}

// DefaultOrchestrator is the production booking path.
type DefaultOrchestrator struct {
	Creator      calendar.EventCreator
	Availability calendar.AvailabilityProvider
	Registry     TokenRegistry
	MaxAttempts  int
	// Backoff is the initial retry delay; it doubles per attempt.
	Backoff time.Duration
}

func NewOrchestrator(creator calendar.EventCreator, availability calendar.AvailabilityProvider, registry TokenRegistry, maxAttempts int) *DefaultOrchestrator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &DefaultOrchestrator{
		Creator:      creator,
		Availability: availability,
		Registry:     registry,
		MaxAttempts:  maxAttempts,
		Backoff:      200 * time.Millisecond,
	}
}

// Book creates the event for the slot. It is idempotent per token: a retry
// of an identical request after a transient failure never creates a second
// event. Only ExternalServiceError is retried, with exponential backoff,
// up to MaxAttempts.
func (o *DefaultOrchestrator) Book(ctx context.Context, slot models.Slot, purpose string, attendees []string, token string) (models.BookingResult, error) {
	logger := utils.GetLogger()

	if purpose == "" {
		return failure(CodeInvalid), NewInvalidRequestError("booking requires a purpose")
	}
	if !slot.Start.Before(slot.End) {
		return failure(CodeInvalid), NewInvalidRequestError("booking requires a valid slot")
	}

	// A previously completed identical request short-circuits here.
	if o.Registry != nil {
		if prior, err := o.Registry.Lookup(ctx, token); err != nil {
			logger.Warn("idempotency lookup failed, proceeding with backend re-check",
				zap.String("token", token), zap.Error(err))
		} else if prior != nil && prior.Booked {
			logger.Info("booking replayed from idempotency registry",
				zap.String("token", token), zap.String("eventID", prior.EventID))
			return *prior, nil
		}
	}

	// The backend is the source of truth when the registry misses (e.g. a
	// crash between create and record).
	if existing, err := o.Creator.FindEventByToken(ctx, token); err == nil && existing != nil {
		result := success(*existing)
		o.record(ctx, token, result)
		return result, nil
	}

	// Detect a lost race before attempting the insert: if anyone is now
	// busy over the slot, it is gone.
	busy, err := o.Availability.BusyIntervals(ctx, attendees, slot.Window())
	if err != nil {
		return failure(CodeExternal), NewExternalError(err)
	}
	for _, iv := range busy {
		if iv.Overlaps(slot.Window()) {
			return failure(CodeSlotTaken), NewSlotTakenError()
		}
	}

	backoff := o.Backoff
	var lastErr error
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		created, err := o.Creator.CreateEvent(ctx, slot, purpose, attendees, token)
		if err == nil {
			result := success(created)
			o.record(ctx, token, result)
			logger.Info("booking committed",
				zap.String("eventID", created.ID),
				zap.Time("start", slot.Start),
				zap.Int("attempt", attempt))
			return result, nil
		}

		attemptErr := classifyCreateError(err)
		if !IsRetryable(attemptErr) {
			return failure(CodeOf(attemptErr)), attemptErr
		}

		lastErr = err
		logger.Warn("booking attempt failed",
			zap.Int("attempt", attempt), zap.Int("maxAttempts", o.MaxAttempts), zap.Error(err))

		if attempt == o.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return failure(CodeExternal), NewExternalError(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2

		// The previous attempt may have landed despite the error; check
		// before retrying so the retry cannot duplicate it.
		if existing, err := o.Creator.FindEventByToken(ctx, token); err == nil && existing != nil {
			result := success(*existing)
			o.record(ctx, token, result)
			return result, nil
		}
	}

	return failure(CodeExternal), NewExternalError(lastErr)
}

// classifyCreateError maps a backend insert failure onto the booking
// error taxonomy: rejected requests are permanent, everything else is a
// transient external failure.
func classifyCreateError(err error) error {
	if calendar.IsRequestError(err) {
		return NewInvalidRequestError(err.Error())
	}
	return NewExternalError(err)
}

func (o *DefaultOrchestrator) record(ctx context.Context, token string, result models.BookingResult) {
	if o.Registry == nil {
		return
	}
	if err := o.Registry.Record(ctx, token, result); err != nil {
		utils.GetLogger().Warn("failed to record idempotency token",
			zap.String("token", token), zap.Error(err))
	}
}

func success(ev models.CreatedEvent) models.BookingResult {
	return models.BookingResult{
		Booked:    true,
		EventID:   ev.ID,
		EventLink: ev.Link,
		BookedAt:  time.Now(),
	}
}

func failure(code string) models.BookingResult {
	return models.BookingResult{Booked: false, Code: code}
}
