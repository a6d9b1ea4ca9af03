package models

import (
	"fmt"
	"time"
)

// Window is a closed, concrete time range with Start strictly before End.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps reports whether two windows share any time.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Contains reports whether o lies fully inside w.
func (w Window) Contains(o Window) bool {
	return !o.Start.Before(w.Start) && !o.End.After(w.End)
}

// Slot is a concrete bookable (start, end) pair, always exactly the
// requested duration long.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Window returns the slot as a Window for interval arithmetic.
func (s Slot) Window() Window {
	return Window{Start: s.Start, End: s.End}
}

// Label formats the slot the way it is presented to the user,
// e.g. "Monday, March 2 at 10:15 AM".
func (s Slot) Label() string {
	return s.Start.Format("Monday, January 2 at 3:04 PM")
}

// Key identifies a slot within a candidate set; starts are distinct by
// construction so the start instant suffices.
func (s Slot) Key() string {
	return s.Start.Format(time.RFC3339)
}

func (s Slot) String() string {
	return fmt.Sprintf("%s - %s", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
}
