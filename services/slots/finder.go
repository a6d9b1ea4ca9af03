// Package slots computes bookable candidate slots by intersecting a
// resolved time window with attendee availability.
package slots

import (
	"context"
	"sort"
	"time"

	"schedulai/models"
	"schedulai/services/calendar"
	"schedulai/utils"

	"go.uber.org/zap"
)

const (
	// Candidate starts snap to 15-minute boundaries.
	granularity = 15 * time.Minute
	// MaxCandidates bounds what is presented to the user.
	MaxCandidates = 5
)

// Finder enumerates candidate slots inside a window.
type Finder struct {
	Availability calendar.AvailabilityProvider
}

func NewFinder(availability calendar.AvailabilityProvider) *Finder {
	return &Finder{Availability: availability}
}

// Find returns up to MaxCandidates non-overlapping slots of exactly the
// requested duration, fully inside the window, earliest first. An empty
// result is a valid outcome, not an error.
func (f *Finder) Find(ctx context.Context, window models.Window, durationMinutes int, attendees []string) ([]models.Slot, error) {
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultDurationMinutes
	}
	duration := time.Duration(durationMinutes) * time.Minute
	if window.Duration() < duration {
		return nil, nil
	}

	busy, err := f.Availability.BusyIntervals(ctx, attendees, window)
	if err != nil {
		return nil, err
	}

	free := freeIntervals(window, mergeIntervals(busy))

	var candidates []models.Slot
	for _, interval := range free {
		start := ceilToGranularity(interval.Start)
		for {
			end := start.Add(duration)
			if end.After(interval.End) {
				break
			}
			candidates = append(candidates, models.Slot{Start: start, End: end})
			if len(candidates) >= MaxCandidates {
				utils.GetLogger().Debug("slot search capped",
					zap.Int("max", MaxCandidates), zap.Time("windowEnd", window.End))
				return candidates, nil
			}
			// Candidates never overlap: the next one starts at the first
			// aligned instant at or after this one ends.
			start = ceilToGranularity(end)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start.Before(candidates[j].Start)
	})
	return candidates, nil
}

// mergeIntervals unions overlapping or touching busy intervals.
func mergeIntervals(intervals []models.Window) []models.Window {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]models.Window, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []models.Window{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// freeIntervals computes the complement of the merged busy intervals
// within the window.
func freeIntervals(window models.Window, busy []models.Window) []models.Window {
	var free []models.Window
	cursor := window.Start

	for _, iv := range busy {
		if !iv.End.After(window.Start) || !iv.Start.Before(window.End) {
			continue
		}
		if iv.Start.After(cursor) {
			free = append(free, models.Window{Start: cursor, End: minTime(iv.Start, window.End)})
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, models.Window{Start: cursor, End: window.End})
	}
	return free
}

// ceilToGranularity rounds t up to the next 15-minute boundary.
func ceilToGranularity(t time.Time) time.Time {
	rounded := t.Truncate(granularity)
	if rounded.Before(t) {
		rounded = rounded.Add(granularity)
	}
	return rounded
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
