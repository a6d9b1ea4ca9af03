package dialogue

import (
	"fmt"
	"strings"

	"schedulai/models"
)

// fieldPriority is the order in which missing fields are asked for: a
// single prompt per turn, highest-priority gap first. Duration is never
// prompted for on its own since it has a default.
var fieldPriority = []string{
	models.FieldPurpose,
	models.FieldTime,
	models.FieldAttendees,
}

var fieldPrompts = map[string]string{
	models.FieldPurpose:   "What is the meeting about?",
	models.FieldTime:      "When would you like to meet? You can say things like \"tomorrow afternoon\" or \"next Tuesday at 10am\".",
	models.FieldAttendees: "Who should attend? Please share their email addresses.",
}

// missingFields lists the unfilled required fields in priority order.
func missingFields(state *models.ConversationState) []string {
	var missing []string
	if state.Purpose == "" {
		missing = append(missing, models.FieldPurpose)
	}
	if !state.HasTime() {
		missing = append(missing, models.FieldTime)
	}
	if !state.HasAttendees() {
		missing = append(missing, models.FieldAttendees)
	}
	return missing
}

// fieldStatus reports each field's filled state, duration included so the
// client can show that the default is in play.
func fieldStatus(state *models.ConversationState) map[string]bool {
	return map[string]bool{
		models.FieldPurpose:   state.Purpose != "",
		models.FieldTime:      state.HasTime(),
		models.FieldAttendees: state.HasAttendees(),
		models.FieldDuration:  state.DurationMinutes > 0,
	}
}

// promptForMissing builds the assistant text asking for the first gap,
// acknowledging what was just captured.
func promptForMissing(state *models.ConversationState, captured []string) string {
	var b strings.Builder
	if len(captured) > 0 {
		b.WriteString("Got it")
		if len(captured) == 1 {
			fmt.Fprintf(&b, ", I have the %s", captured[0])
		}
		b.WriteString(". ")
	}
	for _, field := range fieldPriority {
		switch field {
		case models.FieldPurpose:
			if state.Purpose != "" {
				continue
			}
		case models.FieldTime:
			if state.HasTime() {
				continue
			}
		case models.FieldAttendees:
			if state.HasAttendees() {
				continue
			}
		}
		b.WriteString(fieldPrompts[field])
		return b.String()
	}
	return strings.TrimSpace(b.String())
}

// presentSlots renders the candidate list the user picks from.
func presentSlots(slots []models.Slot, anchorNote string) string {
	var b strings.Builder
	if anchorNote != "" {
		b.WriteString(anchorNote)
		b.WriteString(" ")
	}
	if len(slots) == 1 {
		b.WriteString("I found one time that works for everyone:\n")
	} else {
		fmt.Fprintf(&b, "Here are %d times that work for everyone:\n", len(slots))
	}
	for i, s := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Label())
	}
	b.WriteString("Reply with the number of the slot you'd like to book.")
	return b.String()
}

// slotLabels returns the display label for each candidate, index-aligned.
func slotLabels(slots []models.Slot) []string {
	labels := make([]string, len(slots))
	for i, s := range slots {
		labels[i] = s.Label()
	}
	return labels
}

// confirmBooking is the final message after a successful commit.
func confirmBooking(slot models.Slot, purpose string, attendees []string, result models.BookingResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Done! I've scheduled \"%s\" for %s", purpose, slot.Label())
	if len(attendees) > 0 {
		fmt.Fprintf(&b, " with %s", strings.Join(attendees, ", "))
	}
	b.WriteString(". Invitations are on their way.")
	if result.EventLink != "" {
		fmt.Fprintf(&b, " You can view the event here: %s", result.EventLink)
	}
	return b.String()
}

// anchorNote surfaces which calendar event a relative expression resolved
// against, so a wrong guess is visible before anything is booked.
func anchorNote(anchor *models.AnchorEvent) string {
	if anchor == nil {
		return ""
	}
	return fmt.Sprintf("I anchored that to your event \"%s\" (%s).",
		anchor.Title, anchor.Start.Format("Monday, January 2 at 3:04 PM"))
}

const (
	msgUnparseableTime = "I couldn't work out when you mean. Could you rephrase the time, for example \"next Tuesday at 10am\" or \"tomorrow afternoon\"?"
	msgNoAvailability  = "I couldn't find any time in that range that works for everyone. Could you suggest a different day or time window?"
	msgSlotTaken       = "Sorry, that time was just taken."
	msgBookingFailed   = "I couldn't reach the calendar to book that slot. Nothing was scheduled; please try again in a moment."
	msgBookingRejected = "The calendar rejected that booking, so nothing was scheduled. Let's double-check the details; what would you like to change?"
)

func msgAnchorNotFound(expr string) string {
	return fmt.Sprintf("I couldn't find the event you mentioned in %q on your calendar. Could you give a specific time instead?", expr)
}
