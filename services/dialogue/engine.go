// Package dialogue runs the slot-filling conversation that turns free-text
// utterances into a booked calendar event. The engine accumulates purpose,
// time, attendees, and duration across turns, resolves the time expression
// into a window, proposes candidate slots, and commits the user's pick.
package dialogue

import (
	"context"
	"strings"
	"sync"
	"time"

	"schedulai/models"
	"schedulai/services/extraction"
	"schedulai/services/scheduler"
	"schedulai/services/session"
	"schedulai/services/slots"
	"schedulai/services/timeparse"
	"schedulai/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine is the conversational surface exposed to the transport layer.
type Engine interface {
	HandleUtterance(ctx context.Context, sessionID, utterance string) (models.TurnResult, error)
	HandleSelection(ctx context.Context, sessionID string, index int) (models.TurnResult, error)
	CancelSession(ctx context.Context, sessionID string) error
}

// SlotFinder is what the engine needs from the slot search.
type SlotFinder interface {
	Find(ctx context.Context, window models.Window, durationMinutes int, attendees []string) ([]models.Slot, error)
}

// TimeResolver is what the engine needs from the expression resolver.
type TimeResolver interface {
	Resolve(ctx context.Context, expr string, ref time.Time, durationMinutes int) (models.Window, *models.AnchorEvent, error)
}

// DefaultEngine wires extraction, time resolution, slot search, and booking
// behind per-session locking: turns for the same session serialize, turns
// for distinct sessions run concurrently.
type DefaultEngine struct {
	Extractor    extraction.Extractor
	Resolver     TimeResolver
	Finder       SlotFinder
	Orchestrator scheduler.Orchestrator
	Store        session.Store

	// AutoBook commits the earliest candidate without asking, for
	// voice-style frontends that cannot present a pick list.
	AutoBook bool

	// Clock supplies the reference instant for time resolution.
	Clock func() time.Time

	locks sync.Map
}

func NewEngine(ext extraction.Extractor, resolver *timeparse.Resolver, finder *slots.Finder, orch scheduler.Orchestrator, store session.Store, autoBook bool) *DefaultEngine {
	return &DefaultEngine{
		Extractor:    ext,
		Resolver:     resolver,
		Finder:       finder,
		Orchestrator: orch,
		Store:        store,
		AutoBook:     autoBook,
		Clock:        time.Now,
	}
}

func (e *DefaultEngine) lock(sessionID string) func() {
	v, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *DefaultEngine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// HandleUtterance processes one user message: extract fields, merge them
// into the session, resolve the time expression once all required fields
// are present, and either prompt for the next gap or propose slots.
func (e *DefaultEngine) HandleUtterance(ctx context.Context, sessionID, utterance string) (models.TurnResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	logger := utils.GetLogger()

	state, err := e.Store.Get(ctx, sessionID)
	if err != nil {
		return models.TurnResult{}, NewStoreError(err)
	}
	if state == nil {
		state = models.NewConversationState(sessionID)
	}

	delta, err := e.Extractor.Extract(ctx, utterance, state)
	if err != nil {
		logger.Warn("extraction failed for turn",
			zap.String("sessionID", sessionID), zap.Error(err))
		delta = models.ExtractionDelta{}
	}

	captured, changed := applyDelta(state, delta)
	if changed && state.Phase == models.PhaseAwaitingSelection {
		// Proposed slots were computed from fields that just changed.
		state.Invalidate()
	}

	var anchor *models.AnchorEvent
	if state.RawTimeExpression != "" && state.ResolvedWindow == nil {
		window, a, err := e.Resolver.Resolve(ctx, state.RawTimeExpression, e.now(), state.EffectiveDuration())
		switch {
		case err == nil:
			state.ResolvedWindow = &window
			anchor = a
		case timeparse.IsUnparseable(err):
			state.ClearTime()
			return e.reply(ctx, state, msgUnparseableTime, nil)
		case timeparse.IsAnchorNotFound(err):
			expr := state.RawTimeExpression
			state.ClearTime()
			return e.reply(ctx, state, msgAnchorNotFound(expr), nil)
		default:
			return models.TurnResult{}, err
		}
	}

	if !state.Complete() {
		return e.reply(ctx, state, promptForMissing(state, captured), nil)
	}

	// Nothing slot-affecting changed while a proposal is standing: repeat
	// it rather than recomputing, keeping tokens stable for retries.
	if state.Phase == models.PhaseAwaitingSelection && len(state.CandidateSlots) > 0 {
		turn, err := e.reply(ctx, state, presentSlots(state.CandidateSlots, ""), nil)
		if err != nil {
			return models.TurnResult{}, err
		}
		turn.CandidateSlots = state.CandidateSlots
		turn.SlotLabels = slotLabels(state.CandidateSlots)
		return turn, nil
	}

	return e.proposeSlots(ctx, state, anchor)
}

// proposeSlots runs the slot search over the resolved window and either
// presents candidates, auto-commits the earliest one, or asks for a new
// time when nothing fits.
func (e *DefaultEngine) proposeSlots(ctx context.Context, state *models.ConversationState, anchor *models.AnchorEvent) (models.TurnResult, error) {
	state.Phase = models.PhaseResolvingTime

	candidates, err := e.Finder.Find(ctx, *state.ResolvedWindow, state.EffectiveDuration(), state.Attendees)
	if err != nil {
		return models.TurnResult{}, err
	}
	if len(candidates) == 0 {
		state.ClearTime()
		state.Phase = models.PhaseCollecting
		return e.reply(ctx, state, msgNoAvailability, anchor)
	}

	state.CandidateSlots = candidates
	state.Phase = models.PhaseAwaitingSelection
	e.mintTokens(state)

	if e.AutoBook {
		return e.book(ctx, state, 1, anchorNote(anchor))
	}

	result, err := e.reply(ctx, state, presentSlots(candidates, anchorNote(anchor)), anchor)
	if err != nil {
		return models.TurnResult{}, err
	}
	result.CandidateSlots = candidates
	result.SlotLabels = slotLabels(candidates)
	return result, nil
}

// HandleSelection books the slot the user picked from the last proposal.
// index is 1-based, matching the presented list.
func (e *DefaultEngine) HandleSelection(ctx context.Context, sessionID string, index int) (models.TurnResult, error) {
	unlock := e.lock(sessionID)
	defer unlock()

	state, err := e.Store.Get(ctx, sessionID)
	if err != nil {
		return models.TurnResult{}, NewStoreError(err)
	}
	if state == nil {
		return models.TurnResult{}, NewSessionNotFoundError(sessionID)
	}
	if state.Phase != models.PhaseAwaitingSelection || len(state.CandidateSlots) == 0 {
		return models.TurnResult{}, NewNoPendingSlotsError()
	}
	if index < 1 || index > len(state.CandidateSlots) {
		return models.TurnResult{}, NewInvalidSelectionError(index, len(state.CandidateSlots))
	}

	return e.book(ctx, state, index, "")
}

// book commits the indexed candidate. The idempotency token is minted once
// per (session, slot) at proposal time, so a retried selection after a
// transient failure replays instead of double-booking.
func (e *DefaultEngine) book(ctx context.Context, state *models.ConversationState, index int, prefix string) (models.TurnResult, error) {
	logger := utils.GetLogger()
	slot := state.CandidateSlots[index-1]
	token := state.SelectionTokens[slot.Key()]
	if token == "" {
		token = uuid.NewString()
		if state.SelectionTokens == nil {
			state.SelectionTokens = map[string]string{}
		}
		state.SelectionTokens[slot.Key()] = token
	}

	result, err := e.Orchestrator.Book(ctx, slot, state.Purpose, state.Attendees, token)
	if err == nil {
		logger.Info("conversation concluded with booking",
			zap.String("sessionID", state.SessionID),
			zap.String("eventID", result.EventID))
		text := prefix + confirmBooking(slot, state.Purpose, state.Attendees, result)
		if clearErr := e.Store.Clear(ctx, state.SessionID); clearErr != nil {
			logger.Warn("failed to clear session after booking",
				zap.String("sessionID", state.SessionID), zap.Error(clearErr))
		}
		return models.TurnResult{
			AssistantText: text,
			FieldStatus:   fieldStatus(state),
			Complete:      true,
			Phase:         models.PhaseScheduled,
			Booking:       &result,
		}, nil
	}

	if scheduler.IsSlotTaken(err) {
		logger.Info("selected slot lost to a race",
			zap.String("sessionID", state.SessionID), zap.String("slot", slot.Key()))
		return e.dropTakenSlot(ctx, state, index)
	}

	// A backend rejection cannot succeed on retry; drop the proposal and
	// collect corrected details.
	if scheduler.CodeOf(err) == scheduler.CodeInvalid {
		result.Message = msgBookingRejected
		state.LastBooking = &result
		state.Invalidate()
		turn, replyErr := e.reply(ctx, state, msgBookingRejected, nil)
		if replyErr != nil {
			return models.TurnResult{}, replyErr
		}
		turn.Booking = &result
		return turn, nil
	}

	// Transient failure: the attempt is reported as failed but the
	// proposal stands, so retrying the same pick replays through the
	// idempotency token.
	result.Message = msgBookingFailed
	state.LastBooking = &result
	turn, replyErr := e.reply(ctx, state, msgBookingFailed, nil)
	if replyErr != nil {
		return models.TurnResult{}, replyErr
	}
	turn.Phase = models.PhaseError
	turn.Booking = &result
	turn.CandidateSlots = state.CandidateSlots
	turn.SlotLabels = slotLabels(state.CandidateSlots)
	return turn, nil
}

// dropTakenSlot removes the raced-away candidate and re-presents the rest,
// keeping their tokens intact. With nothing left the conversation falls
// back to collecting a new time.
func (e *DefaultEngine) dropTakenSlot(ctx context.Context, state *models.ConversationState, index int) (models.TurnResult, error) {
	taken := state.CandidateSlots[index-1]
	delete(state.SelectionTokens, taken.Key())
	state.CandidateSlots = append(state.CandidateSlots[:index-1], state.CandidateSlots[index:]...)

	if len(state.CandidateSlots) == 0 {
		state.SelectionTokens = nil
		state.ClearTime()
		state.Phase = models.PhaseCollecting
		return e.reply(ctx, state, msgSlotTaken+" "+msgNoAvailability, nil)
	}

	remaining := state.CandidateSlots
	turn, err := e.reply(ctx, state, msgSlotTaken+"\n"+presentSlots(remaining, ""), nil)
	if err != nil {
		return models.TurnResult{}, err
	}
	turn.CandidateSlots = remaining
	turn.SlotLabels = slotLabels(remaining)
	return turn, nil
}

// CancelSession discards all state for the session. Cancelling an unknown
// session is a no-op.
func (e *DefaultEngine) CancelSession(ctx context.Context, sessionID string) error {
	unlock := e.lock(sessionID)
	defer unlock()

	if err := e.Store.Clear(ctx, sessionID); err != nil {
		return NewStoreError(err)
	}
	e.locks.Delete(sessionID)
	return nil
}

// reply persists the state and builds the turn result around text.
func (e *DefaultEngine) reply(ctx context.Context, state *models.ConversationState, text string, anchor *models.AnchorEvent) (models.TurnResult, error) {
	state.UpdatedAt = e.now()
	if err := e.Store.Set(ctx, state.SessionID, state); err != nil {
		return models.TurnResult{}, NewStoreError(err)
	}
	return models.TurnResult{
		AssistantText: text,
		MissingFields: missingFields(state),
		FieldStatus:   fieldStatus(state),
		Complete:      state.Complete(),
		Phase:         state.Phase,
		AnchorNote:    anchorNote(anchor),
	}, nil
}

func (e *DefaultEngine) mintTokens(state *models.ConversationState) {
	state.SelectionTokens = make(map[string]string, len(state.CandidateSlots))
	for _, s := range state.CandidateSlots {
		state.SelectionTokens[s.Key()] = uuid.NewString()
	}
}

// applyDelta merges one extraction pass into the state. Non-empty fields
// overwrite, absent fields never clear, attendees accumulate unless the
// delta replaces them. It returns the fields captured this turn and whether
// any slot-affecting field actually changed.
func applyDelta(state *models.ConversationState, delta models.ExtractionDelta) (captured []string, changed bool) {
	if delta.Purpose != "" && delta.Purpose != state.Purpose {
		state.Purpose = delta.Purpose
		captured = append(captured, models.FieldPurpose)
		changed = true
	}
	if delta.DurationMinutes != nil && *delta.DurationMinutes > 0 && *delta.DurationMinutes != state.DurationMinutes {
		state.DurationMinutes = *delta.DurationMinutes
		captured = append(captured, models.FieldDuration)
		changed = true
	}
	if delta.TimeExpression != "" && delta.TimeExpression != state.RawTimeExpression {
		state.ClearTime()
		state.RawTimeExpression = delta.TimeExpression
		captured = append(captured, models.FieldTime)
		changed = true
	}
	if len(delta.Attendees) > 0 {
		before := len(state.Attendees)
		if delta.ReplaceAttendees {
			state.Attendees = nil
		}
		state.Attendees = mergeAttendees(state.Attendees, delta.Attendees)
		if delta.ReplaceAttendees || len(state.Attendees) != before {
			captured = append(captured, models.FieldAttendees)
			changed = true
		}
	}
	return captured, changed
}

// mergeAttendees unions the lists, case-insensitively and order-preserving.
func mergeAttendees(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, lists := range [][]string{existing, incoming} {
		for _, a := range lists {
			key := normalizeEmail(a)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
