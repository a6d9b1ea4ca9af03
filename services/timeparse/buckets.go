package timeparse

import (
	"time"

	"schedulai/models"
)

// Fixed bucket boundaries. A bucket always maps the same way regardless of
// the surrounding expression so resolution stays deterministic.
const (
	morningStartHour   = 8
	morningEndHour     = 12
	afternoonStartHour = 12
	afternoonEndHour   = 17
	eveningStartHour   = 17
	eveningEndHour     = 21

	businessStartHour = 9
	businessEndHour   = 17
)

// bucketWindow maps a time-of-day bucket name onto the given calendar day.
func bucketWindow(day time.Time, bucket string) (models.Window, bool) {
	var startHour, endHour int
	switch bucket {
	case "morning":
		startHour, endHour = morningStartHour, morningEndHour
	case "afternoon":
		startHour, endHour = afternoonStartHour, afternoonEndHour
	case "evening":
		startHour, endHour = eveningStartHour, eveningEndHour
	default:
		return models.Window{}, false
	}
	return models.Window{
		Start: atTime(day, startHour, 0),
		End:   atTime(day, endHour, 0),
	}, true
}

// businessDay is the default window for a bare relative-day expression.
func businessDay(day time.Time) models.Window {
	return models.Window{
		Start: atTime(day, businessStartHour, 0),
		End:   atTime(day, businessEndHour, 0),
	}
}

// weekWindow maps (this|next) week with an optional early/late qualifier
// onto the Monday-to-Friday business week. "early" is the first two days,
// "late" the last two.
func weekWindow(ref time.Time, which, qualifier string) models.Window {
	monday := startOfWeek(ref)
	if which == "next" {
		monday = monday.AddDate(0, 0, 7)
	}

	firstDay, lastDay := 0, 4 // Monday..Friday offsets
	switch qualifier {
	case "early":
		lastDay = 1
	case "late":
		firstDay = 3
	}

	return models.Window{
		Start: atTime(monday.AddDate(0, 0, firstDay), businessStartHour, 0),
		End:   atTime(monday.AddDate(0, 0, lastDay), businessEndHour, 0),
	}
}

// startOfWeek returns the Monday 00:00 of the week containing t.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atTime(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
