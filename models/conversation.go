package models

import "time"

// Phase identifies where a conversation sits in the scheduling dialogue.
type Phase string

const (
	PhaseCollecting        Phase = "COLLECTING"
	PhaseResolvingTime     Phase = "RESOLVING_TIME"
	PhaseAwaitingSelection Phase = "AWAITING_SELECTION"
	PhaseScheduled         Phase = "SCHEDULED"
	PhaseError             Phase = "ERROR"
)

// DefaultDurationMinutes is assumed when the user never states a duration.
const DefaultDurationMinutes = 30

// ConversationState is the accumulating meeting request for one session.
// It is owned by the dialogue engine and mutated only through its merge
// logic; candidate slots are valid only while Phase is AWAITING_SELECTION.
type ConversationState struct {
	SessionID         string            `json:"sessionId"`
	Purpose           string            `json:"purpose,omitempty"`
	DurationMinutes   int               `json:"durationMinutes,omitempty"`
	RawTimeExpression string            `json:"rawTimeExpression,omitempty"`
	ResolvedWindow    *Window           `json:"resolvedWindow,omitempty"`
	Attendees         []string          `json:"attendees,omitempty"`
	CandidateSlots    []Slot            `json:"candidateSlots,omitempty"`
	Phase             Phase             `json:"phase"`
	SelectionTokens   map[string]string `json:"selectionTokens,omitempty"`
	LastBooking       *BookingResult    `json:"lastBooking,omitempty"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// NewConversationState returns an empty state in the collecting phase.
func NewConversationState(sessionID string) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		Phase:     PhaseCollecting,
		UpdatedAt: time.Now(),
	}
}

// EffectiveDuration returns the requested duration, falling back to the
// 30-minute default once a slot search is actually needed.
func (s *ConversationState) EffectiveDuration() int {
	if s.DurationMinutes > 0 {
		return s.DurationMinutes
	}
	return DefaultDurationMinutes
}

// HasAttendees reports whether at least one attendee has been captured.
func (s *ConversationState) HasAttendees() bool {
	return len(s.Attendees) > 0
}

// HasTime reports whether the time dimension is populated, either as a raw
// expression awaiting resolution or as an already-resolved window.
func (s *ConversationState) HasTime() bool {
	return s.RawTimeExpression != "" || s.ResolvedWindow != nil
}

// Complete is true exactly when purpose, time, and attendees are all
// populated. It is the trigger for slot generation.
func (s *ConversationState) Complete() bool {
	return s.Purpose != "" && s.HasTime() && s.HasAttendees()
}

// Invalidate clears computed candidates and returns the conversation to the
// collecting phase. Called whenever an upstream field changes after slots
// were presented.
func (s *ConversationState) Invalidate() {
	s.CandidateSlots = nil
	s.SelectionTokens = nil
	s.Phase = PhaseCollecting
}

// ClearTime drops both the raw expression and any resolved window so the
// user can supply a different time.
func (s *ConversationState) ClearTime() {
	s.RawTimeExpression = ""
	s.ResolvedWindow = nil
}

// Clone returns a deep copy. Stores hand out clones so in-flight turn
// mutations never reach persisted state until the turn commits.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	if s.ResolvedWindow != nil {
		w := *s.ResolvedWindow
		c.ResolvedWindow = &w
	}
	if s.Attendees != nil {
		c.Attendees = append([]string(nil), s.Attendees...)
	}
	if s.CandidateSlots != nil {
		c.CandidateSlots = append([]Slot(nil), s.CandidateSlots...)
	}
	if s.SelectionTokens != nil {
		c.SelectionTokens = make(map[string]string, len(s.SelectionTokens))
		for k, v := range s.SelectionTokens {
			c.SelectionTokens[k] = v
		}
	}
	if s.LastBooking != nil {
		b := *s.LastBooking
		c.LastBooking = &b
	}
	return &c
}

// ExtractionDelta is the structured output of one extraction pass over a
// single utterance. Nil / empty fields mean "absent from this utterance",
// never "clear the field".
type ExtractionDelta struct {
	Purpose          string   `json:"purpose,omitempty"`
	DurationMinutes  *int     `json:"durationMinutes,omitempty"`
	TimeExpression   string   `json:"timeExpression,omitempty"`
	Attendees        []string `json:"attendees,omitempty"`
	ReplaceAttendees bool     `json:"replaceAttendees,omitempty"`
	Confidence       float64  `json:"confidence,omitempty"`
}

// Empty reports whether the delta carries no usable field at all.
func (d ExtractionDelta) Empty() bool {
	return d.Purpose == "" && d.DurationMinutes == nil &&
		d.TimeExpression == "" && len(d.Attendees) == 0
}
