package models

// Field names used in missing-field prompts and status maps, in priority
// order: purpose first, then time, attendees, duration.
const (
	FieldPurpose   = "purpose"
	FieldTime      = "time"
	FieldAttendees = "attendees"
	FieldDuration  = "duration"
)

// TurnResult is what one dialogue turn returns to the transport layer.
type TurnResult struct {
	AssistantText  string          `json:"response"`
	MissingFields  []string        `json:"missingFields,omitempty"`
	FieldStatus    map[string]bool `json:"fieldStatus"`
	CandidateSlots []Slot          `json:"candidateSlots,omitempty"`
	SlotLabels     []string        `json:"slotLabels,omitempty"`
	Complete       bool            `json:"complete"`
	Phase          Phase           `json:"phase"`
	AnchorNote     string          `json:"anchorNote,omitempty"`
	Booking        *BookingResult  `json:"booking,omitempty"`
}
