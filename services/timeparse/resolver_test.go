package timeparse

import (
	"context"
	"errors"
	"testing"
	"time"

	"schedulai/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refMonday is Monday, March 3rd 2025 at 09:00 UTC.
var refMonday = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

type fakeAnchorLookup struct {
	events []models.AnchorEvent
	err    error
	calls  int
}

func (f *fakeAnchorLookup) FindEvents(_ context.Context, _ string, _ time.Time) ([]models.AnchorEvent, error) {
	f.calls++
	return f.events, f.err
}

func mustResolve(t *testing.T, r *Resolver, expr string, duration int) models.Window {
	t.Helper()
	w, _, err := r.Resolve(context.Background(), expr, refMonday, duration)
	require.NoError(t, err, "expression %q", expr)
	return w
}

func TestResolveAbsoluteLiterals(t *testing.T) {
	r := NewResolver(nil)

	w := mustResolve(t, r, "2025-03-10T14:00:00Z", 30)
	assert.Equal(t, time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 30*time.Minute, w.Duration())

	// The T/Z separators are case-sensitive, so the literal must survive
	// normalization intact, padding included.
	w = mustResolve(t, r, "  2025-03-10T14:00:00Z ", 30)
	assert.Equal(t, time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC), w.Start)

	w = mustResolve(t, r, "March 5 3pm", 45)
	assert.Equal(t, time.Date(2025, time.March, 5, 15, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 45*time.Minute, w.Duration())

	w = mustResolve(t, r, "next Tuesday at 10am", 30)
	assert.Equal(t, time.Date(2025, time.March, 11, 10, 0, 0, 0, time.UTC), w.Start)
}

func TestResolveDateOnlyCoversBusinessDay(t *testing.T) {
	r := NewResolver(nil)

	w := mustResolve(t, r, "2025-03-10", 30)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC), w.End)
}

func TestResolveMonthDayWithoutYearRollsForward(t *testing.T) {
	r := NewResolver(nil)

	// March 1st already passed at the reference instant, so it means next year.
	w := mustResolve(t, r, "March 1", 30)
	assert.Equal(t, 2026, w.Start.Year())
	assert.Equal(t, time.March, w.Start.Month())
	assert.Equal(t, 1, w.Start.Day())
}

func TestResolvePastPointRejected(t *testing.T) {
	r := NewResolver(nil)

	_, _, err := r.Resolve(context.Background(), "2025-03-01T10:00:00Z", refMonday, 30)
	require.Error(t, err)
	assert.True(t, IsUnparseable(err))
}

func TestResolveAnchoredBefore(t *testing.T) {
	anchors := &fakeAnchorLookup{events: []models.AnchorEvent{
		{
			ID:    "ev1",
			Title: "Design Review",
			Start: time.Date(2025, time.March, 3, 17, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.March, 3, 17, 30, 0, 0, time.UTC),
		},
	}}
	r := NewResolver(anchors)

	w, anchor, err := r.Resolve(context.Background(), "an hour before my 5 PM meeting", refMonday, 30)
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, "ev1", anchor.ID)
	assert.Equal(t, time.Date(2025, time.March, 3, 16, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 30*time.Minute, w.Duration())
}

func TestResolveAnchoredBeforeWithoutOffsetEndsAtAnchor(t *testing.T) {
	anchors := &fakeAnchorLookup{events: []models.AnchorEvent{
		{
			ID:    "ev1",
			Title: "Planning",
			Start: time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC),
		},
	}}
	r := NewResolver(anchors)

	w, _, err := r.Resolve(context.Background(), "before my planning meeting", refMonday, 30)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 3, 13, 30, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC), w.End)
}

func TestResolveAnchoredAfter(t *testing.T) {
	anchors := &fakeAnchorLookup{events: []models.AnchorEvent{
		{
			ID:    "ev2",
			Title: "Standup",
			Start: time.Date(2025, time.March, 3, 9, 45, 0, 0, time.UTC),
			End:   time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC),
		},
	}}
	r := NewResolver(anchors)

	w, _, err := r.Resolve(context.Background(), "30 minutes after my standup", refMonday, 30)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 3, 10, 30, 0, 0, time.UTC), w.Start)
}

func TestResolveAnchorTieBreak(t *testing.T) {
	anchors := &fakeAnchorLookup{events: []models.AnchorEvent{
		{ID: "past", Title: "Sync", Start: refMonday.Add(-2 * time.Hour), End: refMonday.Add(-time.Hour)},
		{ID: "later", Title: "Sync", Start: time.Date(2025, time.March, 5, 17, 0, 0, 0, time.UTC), End: time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC)},
		{ID: "sooner-b", Title: "Beta Sync", Start: time.Date(2025, time.March, 4, 17, 0, 0, 0, time.UTC), End: time.Date(2025, time.March, 4, 18, 0, 0, 0, time.UTC)},
		{ID: "sooner-a", Title: "Alpha Sync", Start: time.Date(2025, time.March, 4, 17, 0, 0, 0, time.UTC), End: time.Date(2025, time.March, 4, 18, 0, 0, 0, time.UTC)},
	}}
	r := NewResolver(anchors)

	_, anchor, err := r.Resolve(context.Background(), "an hour before my sync meeting", refMonday, 30)
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, "sooner-a", anchor.ID, "soonest upcoming wins, title breaks the tie")
}

func TestResolveAnchorNotFound(t *testing.T) {
	r := NewResolver(&fakeAnchorLookup{})

	_, _, err := r.Resolve(context.Background(), "an hour before my budget meeting", refMonday, 30)
	require.Error(t, err)
	assert.True(t, IsAnchorNotFound(err))
}

func TestResolveAnchorLookupFailurePropagates(t *testing.T) {
	r := NewResolver(&fakeAnchorLookup{err: errors.New("backend down")})

	_, _, err := r.Resolve(context.Background(), "an hour before my sync meeting", refMonday, 30)
	require.Error(t, err)
	assert.False(t, IsAnchorNotFound(err))
	assert.False(t, IsUnparseable(err))
}

func TestDayAfterTomorrowIsNotAnchored(t *testing.T) {
	anchors := &fakeAnchorLookup{}
	r := NewResolver(anchors)

	w := mustResolve(t, r, "day after tomorrow", 30)
	assert.Equal(t, 0, anchors.calls, "no calendar lookup for a plain relative day")
	assert.Equal(t, time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 5, 17, 0, 0, 0, time.UTC), w.End)
}

func TestResolveFuzzyBuckets(t *testing.T) {
	r := NewResolver(nil)

	w := mustResolve(t, r, "tomorrow afternoon", 30)
	assert.Equal(t, time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 4, 17, 0, 0, 0, time.UTC), w.End)

	w = mustResolve(t, r, "Tuesday morning", 30)
	assert.Equal(t, time.Date(2025, time.March, 4, 8, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC), w.End)

	w = mustResolve(t, r, "next week", 30)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 14, 17, 0, 0, 0, time.UTC), w.End)

	w = mustResolve(t, r, "early next week", 30)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 11, 17, 0, 0, 0, time.UTC), w.End)

	w = mustResolve(t, r, "late next week", 30)
	assert.Equal(t, time.Date(2025, time.March, 13, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 14, 17, 0, 0, 0, time.UTC), w.End)
}

func TestResolveBucketStartedTodayClampsToNow(t *testing.T) {
	r := NewResolver(nil)

	// The morning bucket opens at 08:00 but the reference is 09:00.
	w := mustResolve(t, r, "this morning", 30)
	assert.Equal(t, refMonday, w.Start)
	assert.Equal(t, time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC), w.End)
}

func TestResolveRelativeDays(t *testing.T) {
	r := NewResolver(nil)

	w := mustResolve(t, r, "tomorrow", 30)
	assert.Equal(t, time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.March, 4, 17, 0, 0, 0, time.UTC), w.End)

	w = mustResolve(t, r, "in 3 days", 30)
	assert.Equal(t, time.Date(2025, time.March, 6, 9, 0, 0, 0, time.UTC), w.Start)

	w = mustResolve(t, r, "tomorrow at 9am", 60)
	assert.Equal(t, time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Hour, w.Duration())
}

func TestResolveUnparseable(t *testing.T) {
	r := NewResolver(nil)

	for _, expr := range []string{"", "whenever", "the usual time", "blue"} {
		_, _, err := r.Resolve(context.Background(), expr, refMonday, 30)
		require.Error(t, err, "expression %q", expr)
		assert.True(t, IsUnparseable(err), "expression %q", expr)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := NewResolver(nil)

	for _, expr := range []string{"early next week", "tomorrow afternoon", "next Tuesday at 10am", "in 2 days"} {
		first := mustResolve(t, r, expr, 30)
		second := mustResolve(t, r, expr, 30)
		assert.Equal(t, first, second, "expression %q", expr)
	}
}
