package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"schedulai/models"
	"schedulai/services/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	events     map[string]models.CreatedEvent
	createErrs []error
	calls      int
	// storeOnError records the event even when the call errors, simulating
	// an insert whose response was lost.
	storeOnError bool
}

func newFakeCreator() *fakeCreator {
	return &fakeCreator{events: map[string]models.CreatedEvent{}}
}

func (f *fakeCreator) CreateEvent(_ context.Context, _ models.Slot, _ string, _ []string, token string) (models.CreatedEvent, error) {
	f.calls++
	ev := models.CreatedEvent{ID: "ev-" + token, Link: "https://cal.example/ev-" + token}
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			if f.storeOnError {
				f.events[token] = ev
			}
			return models.CreatedEvent{}, err
		}
	}
	f.events[token] = ev
	return ev, nil
}

func (f *fakeCreator) FindEventByToken(_ context.Context, token string) (*models.CreatedEvent, error) {
	if ev, ok := f.events[token]; ok {
		return &ev, nil
	}
	return nil, nil
}

type fakeAvailability struct {
	busy []models.Window
	err  error
}

func (f *fakeAvailability) BusyIntervals(_ context.Context, _ []string, _ models.Window) ([]models.Window, error) {
	return f.busy, f.err
}

type memRegistry struct {
	results map[string]models.BookingResult
}

func newMemRegistry() *memRegistry {
	return &memRegistry{results: map[string]models.BookingResult{}}
}

func (r *memRegistry) Lookup(_ context.Context, token string) (*models.BookingResult, error) {
	if res, ok := r.results[token]; ok {
		return &res, nil
	}
	return nil, nil
}

func (r *memRegistry) Record(_ context.Context, token string, result models.BookingResult) error {
	r.results[token] = result
	return nil
}

func testSlot() models.Slot {
	start := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
	return models.Slot{Start: start, End: start.Add(30 * time.Minute)}
}

func newTestOrchestrator(creator *fakeCreator, avail *fakeAvailability, reg TokenRegistry) *DefaultOrchestrator {
	o := NewOrchestrator(creator, avail, reg, 3)
	o.Backoff = time.Millisecond
	return o
}

func TestBookSucceeds(t *testing.T) {
	creator := newFakeCreator()
	reg := newMemRegistry()
	o := newTestOrchestrator(creator, &fakeAvailability{}, reg)

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", []string{"a@example.com"}, "tok-1")
	require.NoError(t, err)
	assert.True(t, result.Booked)
	assert.Equal(t, "ev-tok-1", result.EventID)
	assert.Equal(t, 1, creator.calls)

	recorded, _ := reg.Lookup(context.Background(), "tok-1")
	require.NotNil(t, recorded)
	assert.True(t, recorded.Booked)
}

func TestBookReplaysFromRegistry(t *testing.T) {
	creator := newFakeCreator()
	reg := newMemRegistry()
	reg.results["tok-1"] = models.BookingResult{Booked: true, EventID: "ev-original"}
	o := newTestOrchestrator(creator, &fakeAvailability{}, reg)

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", nil, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-original", result.EventID)
	assert.Equal(t, 0, creator.calls, "replay must not create a second event")
}

func TestBookRecoversFromBackend(t *testing.T) {
	// The registry missed (e.g. a crash between create and record) but the
	// backend still knows the token.
	creator := newFakeCreator()
	creator.events["tok-1"] = models.CreatedEvent{ID: "ev-backend"}
	o := newTestOrchestrator(creator, &fakeAvailability{}, newMemRegistry())

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", nil, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-backend", result.EventID)
	assert.Equal(t, 0, creator.calls)
}

func TestBookDetectsLostRace(t *testing.T) {
	slot := testSlot()
	avail := &fakeAvailability{busy: []models.Window{{Start: slot.Start, End: slot.End}}}
	creator := newFakeCreator()
	o := newTestOrchestrator(creator, avail, newMemRegistry())

	result, err := o.Book(context.Background(), slot, "roadmap review", nil, "tok-1")
	require.Error(t, err)
	assert.True(t, IsSlotTaken(err))
	assert.False(t, result.Booked)
	assert.Equal(t, models.BookingCodeSlotTaken, result.Code)
	assert.Equal(t, 0, creator.calls)
}

func TestBookRetriesTransientFailures(t *testing.T) {
	creator := newFakeCreator()
	creator.createErrs = []error{errors.New("timeout"), errors.New("timeout")}
	o := newTestOrchestrator(creator, &fakeAvailability{}, newMemRegistry())

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", nil, "tok-1")
	require.NoError(t, err)
	assert.True(t, result.Booked)
	assert.Equal(t, 3, creator.calls)
}

func TestBookGivesUpAfterMaxAttempts(t *testing.T) {
	creator := newFakeCreator()
	creator.createErrs = []error{errors.New("down"), errors.New("down"), errors.New("down")}
	o := newTestOrchestrator(creator, &fakeAvailability{}, newMemRegistry())

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", nil, "tok-1")
	require.Error(t, err)
	assert.Equal(t, CodeExternal, CodeOf(err))
	assert.False(t, result.Booked)
	assert.Equal(t, 3, creator.calls)
}

func TestBookDoesNotRetryBackendRejection(t *testing.T) {
	creator := newFakeCreator()
	creator.createErrs = []error{calendar.NewRequestError("attendee email malformed")}
	o := newTestOrchestrator(creator, &fakeAvailability{}, newMemRegistry())

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", nil, "tok-1")
	require.Error(t, err)
	assert.Equal(t, CodeInvalid, CodeOf(err))
	assert.False(t, result.Booked)
	assert.Equal(t, 1, creator.calls)
}

func TestBookValidatesInput(t *testing.T) {
	creator := newFakeCreator()
	o := newTestOrchestrator(creator, &fakeAvailability{}, newMemRegistry())

	_, err := o.Book(context.Background(), testSlot(), "", nil, "tok-1")
	require.Error(t, err)
	assert.Equal(t, CodeInvalid, CodeOf(err))

	slot := testSlot()
	slot.End = slot.Start
	_, err = o.Book(context.Background(), slot, "roadmap review", nil, "tok-2")
	require.Error(t, err)
	assert.Equal(t, CodeInvalid, CodeOf(err))

	assert.Equal(t, 0, creator.calls)
}

func TestBookRetryReplaysIfFirstAttemptLanded(t *testing.T) {
	// The insert succeeds but its response is lost. The pre-retry token
	// check must find the event instead of inserting it again.
	creator := newFakeCreator()
	creator.createErrs = []error{errors.New("response lost")}
	creator.storeOnError = true
	o := newTestOrchestrator(creator, &fakeAvailability{}, newMemRegistry())

	result, err := o.Book(context.Background(), testSlot(), "roadmap review", nil, "tok-1")
	require.NoError(t, err)
	assert.True(t, result.Booked)
	assert.Equal(t, "ev-tok-1", result.EventID)
	assert.Equal(t, 1, creator.calls, "retry must replay, not duplicate")
}
