// Package timeparse converts natural-language time expressions into
// concrete datetime windows. Parsing precedence is fixed: absolute
// literals, then anchor-relative phrases, then fuzzy buckets, then bare
// relative days. Given the same expression and reference instant the
// resolver always yields the same window.
package timeparse

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"schedulai/models"
	"schedulai/services/calendar"
)

// Resolver turns raw time expressions into closed (start, end) windows.
// Anchors ("before my 5 PM meeting") are looked up on the external
// calendar; everything else is resolved locally.
type Resolver struct {
	Anchors calendar.AnchorLookup
}

func NewResolver(anchors calendar.AnchorLookup) *Resolver {
	return &Resolver{Anchors: anchors}
}

var (
	monthNames = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
	weekdayNames = map[string]time.Weekday{
		"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday,
		"saturday": time.Saturday, "sunday": time.Sunday,
	}

	clockPattern = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`

	monthDayRe = regexp.MustCompile(`^(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?(?:\s+(?:at\s+)?` + clockPattern + `)?$`)
	weekdayRe  = regexp.MustCompile(`^(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:\s+(?:at\s+)?` + clockPattern + `)?$`)

	anchorRe    = regexp.MustCompile(`^(?:(an?\s+hour|half\s+an?\s+hour|\d+\s*(?:minutes?|mins?|hours?|hrs?))\s+)?(before|after)\s+(my\s+|the\s+)?(.+?)$`)
	eventNounRe = regexp.MustCompile(`\b(meeting|call|appointment|event|session|sync|standup|1:1)\b`)

	weekBucketRe    = regexp.MustCompile(`^(?:(early|late)\s+)?(this|next)\s+week$`)
	dayBucketRe     = regexp.MustCompile(`^(today|tomorrow|this)?\s*(morning|afternoon|evening)$`)
	weekdayBucketRe = regexp.MustCompile(`^(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\s+(morning|afternoon|evening)$`)

	relativeDayRe = regexp.MustCompile(`^(today|tomorrow|day after tomorrow|in\s+\d+\s+days?)(?:\s+(?:at\s+)?` + clockPattern + `)?$`)

	offsetRe = regexp.MustCompile(`^(\d+)\s*(minutes?|mins?|hours?|hrs?)$`)
)

// Resolve converts expr into a concrete window. The reference instant is
// what "now" means for this conversation; durationMinutes sizes the window
// when the expression names only a point in time. When the expression was
// anchored to an existing event, the chosen anchor is returned so the
// caller can surface it.
func (r *Resolver) Resolve(ctx context.Context, expr string, ref time.Time, durationMinutes int) (models.Window, *models.AnchorEvent, error) {
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultDurationMinutes
	}
	duration := time.Duration(durationMinutes) * time.Minute

	norm := normalize(expr)
	if norm == "" {
		return models.Window{}, nil, NewUnparseableError(expr)
	}

	// Tier 1: absolute date/time literals.
	if w, ok, err := r.resolveAbsolute(strings.TrimSpace(expr), norm, ref, duration); ok {
		return w, nil, err
	}

	// Tier 2: relative to an existing calendar event.
	if w, anchor, ok, err := r.resolveAnchored(ctx, norm, ref, duration); ok {
		return w, anchor, err
	}

	// Tier 3: fuzzy buckets.
	if w, ok, err := r.resolveFuzzy(norm, ref); ok {
		return w, nil, err
	}

	// Tier 4: bare relative days.
	if w, ok, err := r.resolveRelativeDay(norm, ref, duration); ok {
		return w, nil, err
	}

	return models.Window{}, nil, NewUnparseableError(expr)
}

func normalize(expr string) string {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.Join(strings.Fields(s), " ")
	for _, prefix := range []string{"sometime ", "some time ", "on ", "at around ", "around "} {
		s = strings.TrimPrefix(s, prefix)
	}
	return s
}

// resolveAbsolute handles ISO-like literals, "March 5 3pm" and
// "next Tuesday 10am" forms. ISO layouts are matched against the raw
// expression because their T/Z separators are case-sensitive; the
// word-based forms use the normalized one.
func (r *Resolver) resolveAbsolute(raw, expr string, ref time.Time, duration time.Duration) (models.Window, bool, error) {
	// ISO-like literals first.
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, ref.Location()); err == nil {
			return pointWindow(t, duration, ref)
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", expr, ref.Location()); err == nil {
		return clampFuture(businessDay(t), ref)
	}

	if m := monthDayRe.FindStringSubmatch(expr); m != nil {
		month := monthNames[m[1]]
		dayNum, _ := strconv.Atoi(m[2])
		year := ref.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		day := time.Date(year, month, dayNum, 0, 0, 0, 0, ref.Location())
		// No explicit year: prefer the future occurrence.
		if m[3] == "" && day.Before(startOfDay(ref)) {
			day = day.AddDate(1, 0, 0)
		}
		if hour, minute, ok := parseClock(m[4], m[5], m[6]); ok {
			return pointWindow(atTime(day, hour, minute), duration, ref)
		}
		return clampFuture(businessDay(day), ref)
	}

	if m := weekdayRe.FindStringSubmatch(expr); m != nil {
		day := weekdayDate(ref, weekdayNames[m[2]], m[1] != "")
		if hour, minute, ok := parseClock(m[3], m[4], m[5]); ok {
			return pointWindow(atTime(day, hour, minute), duration, ref)
		}
		return clampFuture(businessDay(day), ref)
	}

	return models.Window{}, false, nil
}

// resolveAnchored handles "an hour before my 5 PM meeting" style phrases.
// When several events match the description, the soonest upcoming wins,
// tie-broken by start time and then title.
func (r *Resolver) resolveAnchored(ctx context.Context, expr string, ref time.Time, duration time.Duration) (models.Window, *models.AnchorEvent, bool, error) {
	m := anchorRe.FindStringSubmatch(expr)
	if m == nil {
		return models.Window{}, nil, false, nil
	}

	offset := parseOffset(m[1])
	direction := m[2]
	description := strings.TrimSpace(m[4])
	// Only treat this as anchored when the phrase clearly names an event
	// ("before my 5 PM meeting"), not for things like "day after tomorrow".
	if description == "" || (m[3] == "" && !eventNounRe.MatchString(description)) {
		return models.Window{}, nil, false, nil
	}

	if r.Anchors == nil {
		return models.Window{}, nil, true, NewAnchorNotFoundError(description)
	}
	events, err := r.Anchors.FindEvents(ctx, description, ref)
	if err != nil {
		return models.Window{}, nil, true, fmt.Errorf("anchor lookup failed: %w", err)
	}

	anchor := chooseAnchor(events, ref)
	if anchor == nil {
		return models.Window{}, nil, true, NewAnchorNotFoundError(description)
	}

	var point time.Time
	if direction == "before" {
		if offset > 0 {
			point = anchor.Start.Add(-offset)
		} else {
			// "before my X meeting" with no quantity: end right at the anchor.
			point = anchor.Start.Add(-duration)
		}
	} else {
		point = anchor.End.Add(offset)
	}

	w, _, err := pointWindow(point, duration, ref)
	return w, anchor, true, err
}

func parseOffset(s string) time.Duration {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "an hour", "a hour":
		return time.Hour
	case "half an hour", "half a hour":
		return 30 * time.Minute
	}
	if m := offsetRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(m[2], "h") {
			return time.Duration(n) * time.Hour
		}
		return time.Duration(n) * time.Minute
	}
	return 0
}

// chooseAnchor picks the soonest upcoming event deterministically.
func chooseAnchor(events []models.AnchorEvent, ref time.Time) *models.AnchorEvent {
	upcoming := make([]models.AnchorEvent, 0, len(events))
	for _, ev := range events {
		if !ev.Start.Before(ref) {
			upcoming = append(upcoming, ev)
		}
	}
	if len(upcoming) == 0 {
		return nil
	}
	sort.Slice(upcoming, func(i, j int) bool {
		if !upcoming[i].Start.Equal(upcoming[j].Start) {
			return upcoming[i].Start.Before(upcoming[j].Start)
		}
		return upcoming[i].Title < upcoming[j].Title
	})
	return &upcoming[0]
}

// resolveFuzzy handles named coarse buckets: "late next week",
// "tomorrow afternoon", "tuesday morning".
func (r *Resolver) resolveFuzzy(expr string, ref time.Time) (models.Window, bool, error) {
	if m := weekBucketRe.FindStringSubmatch(expr); m != nil {
		w, _, err := clampFuture(weekWindow(ref, m[2], m[1]), ref)
		return w, true, err
	}

	if m := weekdayBucketRe.FindStringSubmatch(expr); m != nil {
		day := weekdayDate(ref, weekdayNames[m[2]], m[1] != "")
		w, _ := bucketWindow(day, m[3])
		clamped, _, err := clampFuture(w, ref)
		return clamped, true, err
	}

	if m := dayBucketRe.FindStringSubmatch(expr); m != nil {
		day := startOfDay(ref)
		if m[1] == "tomorrow" {
			day = day.AddDate(0, 0, 1)
		}
		w, _ := bucketWindow(day, m[2])
		clamped, _, err := clampFuture(w, ref)
		return clamped, true, err
	}

	return models.Window{}, false, nil
}

// resolveRelativeDay handles "tomorrow", "in 3 days" and similar, covering
// the whole business day unless a clock time is attached.
func (r *Resolver) resolveRelativeDay(expr string, ref time.Time, duration time.Duration) (models.Window, bool, error) {
	m := relativeDayRe.FindStringSubmatch(expr)
	if m == nil {
		return models.Window{}, false, nil
	}

	var daysAhead int
	switch {
	case m[1] == "today":
		daysAhead = 0
	case m[1] == "tomorrow":
		daysAhead = 1
	case m[1] == "day after tomorrow":
		daysAhead = 2
	default: // "in N days"
		fields := strings.Fields(m[1])
		daysAhead, _ = strconv.Atoi(fields[1])
	}
	day := startOfDay(ref).AddDate(0, 0, daysAhead)

	if hour, minute, ok := parseClock(m[2], m[3], m[4]); ok {
		w, _, err := pointWindow(atTime(day, hour, minute), duration, ref)
		return w, true, err
	}
	w, _, err := clampFuture(businessDay(day), ref)
	return w, true, err
}

// weekdayDate maps a weekday name onto a concrete date. A bare weekday is
// the next occurrence after the reference day; "next" pushes it into the
// following calendar week.
func weekdayDate(ref time.Time, wd time.Weekday, nextWeek bool) time.Time {
	if nextWeek {
		monday := startOfWeek(ref).AddDate(0, 0, 7)
		offset := (int(wd) + 6) % 7 // Monday = 0
		return monday.AddDate(0, 0, offset)
	}
	day := startOfDay(ref)
	daysAhead := (int(wd) - int(ref.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	return day.AddDate(0, 0, daysAhead)
}

// parseClock turns the captured clock groups into a 24h (hour, minute).
// Hours without am/pm are taken as written only when unambiguous (13-23 or
// an explicit minute part); a bare small hour needs am/pm to match.
func parseClock(hourStr, minuteStr, meridiem string) (int, int, bool) {
	if hourStr == "" {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	minute := 0
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		if minuteStr == "" {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

// pointWindow expands a point in time into a closed window of the
// conversation's duration. Points already in the past are rejected so the
// engine can prompt for a different time.
func pointWindow(t time.Time, duration time.Duration, ref time.Time) (models.Window, bool, error) {
	if t.Before(ref) {
		return models.Window{}, true, &ResolutionError{
			Code:    CodeUnparseable,
			Message: fmt.Sprintf("%s is already in the past", t.Format("Monday, January 2 at 3:04 PM")),
		}
	}
	return models.Window{Start: t, End: t.Add(duration)}, true, nil
}

// clampFuture trims the window's start to the reference instant so a bucket
// that began earlier today still yields only bookable time.
func clampFuture(w models.Window, ref time.Time) (models.Window, bool, error) {
	if w.Start.Before(ref) {
		w.Start = ref
	}
	if !w.Start.Before(w.End) {
		return models.Window{}, true, &ResolutionError{
			Code:    CodeUnparseable,
			Message: "that time period has already passed",
		}
	}
	return w, true, nil
}
