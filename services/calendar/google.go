// File: services/calendar/google.go
package calendar

import (
	"context"
	"fmt"
	"time"

	"schedulai/models"
	"schedulai/utils"

	"go.uber.org/zap"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const tokenProperty = "schedulaiToken"

// GoogleCalendarService implements Service against the Google Calendar v3 API.
type GoogleCalendarService struct {
	svc        *calendarapi.Service
	calendarID string
}

// NewGoogleCalendarService builds the API client from a service account file.
func NewGoogleCalendarService(credentialsFile, calendarID string) (*GoogleCalendarService, error) {
	ctx := context.Background()
	svc, err := calendarapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(calendarapi.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendarService{svc: svc, calendarID: calendarID}, nil
}

// FindEvents searches upcoming events whose text matches the description.
func (g *GoogleCalendarService) FindEvents(ctx context.Context, description string, ref time.Time) ([]models.AnchorEvent, error) {
	call := g.svc.Events.List(g.calendarID).
		Q(description).
		TimeMin(ref.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(10).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("anchor event search failed: %w", err)
	}

	var anchors []models.AnchorEvent
	for _, ev := range resp.Items {
		start, end, ok := eventTimes(ev)
		if !ok {
			continue
		}
		anchors = append(anchors, models.AnchorEvent{
			ID:    ev.Id,
			Title: ev.Summary,
			Start: start,
			End:   end,
		})
	}
	return anchors, nil
}

// BusyIntervals queries free/busy for the primary calendar and every attendee.
func (g *GoogleCalendarService) BusyIntervals(ctx context.Context, attendees []string, window models.Window) ([]models.Window, error) {
	items := []*calendarapi.FreeBusyRequestItem{{Id: g.calendarID}}
	for _, a := range attendees {
		items = append(items, &calendarapi.FreeBusyRequestItem{Id: a})
	}

	req := &calendarapi.FreeBusyRequest{
		TimeMin: window.Start.Format(time.RFC3339),
		TimeMax: window.End.Format(time.RFC3339),
		Items:   items,
	}

	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query failed: %w", err)
	}

	var busy []models.Window
	for id, cal := range resp.Calendars {
		if len(cal.Errors) > 0 {
			utils.GetLogger().Warn("freebusy lookup failed for calendar",
				zap.String("calendar", id), zap.String("reason", cal.Errors[0].Reason))
			continue
		}
		for _, period := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, period.Start)
			end, err2 := time.Parse(time.RFC3339, period.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, models.Window{Start: start, End: end})
		}
	}
	return busy, nil
}

// CreateEvent inserts the event with attendees, reminder overrides, and the
// idempotency token stored as a private extended property.
func (g *GoogleCalendarService) CreateEvent(ctx context.Context, slot models.Slot, purpose string, attendees []string, idempotencyToken string) (models.CreatedEvent, error) {
	eventAttendees := make([]*calendarapi.EventAttendee, 0, len(attendees))
	for _, a := range attendees {
		eventAttendees = append(eventAttendees, &calendarapi.EventAttendee{Email: a})
	}

	event := &calendarapi.Event{
		Summary:     purpose,
		Description: purpose,
		Start:       &calendarapi.EventDateTime{DateTime: slot.Start.Format(time.RFC3339)},
		End:         &calendarapi.EventDateTime{DateTime: slot.End.Format(time.RFC3339)},
		Attendees:   eventAttendees,
		Reminders: &calendarapi.EventReminders{
			UseDefault: false,
			Overrides: []*calendarapi.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &calendarapi.EventExtendedProperties{
			Private: map[string]string{tokenProperty: idempotencyToken},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != 408 && gerr.Code != 429 {
			return models.CreatedEvent{}, NewRequestError(gerr.Message)
		}
		return models.CreatedEvent{}, fmt.Errorf("event creation failed: %w", err)
	}

	return models.CreatedEvent{ID: created.Id, Link: created.HtmlLink}, nil
}

// FindEventByToken looks up an event previously created with the token.
func (g *GoogleCalendarService) FindEventByToken(ctx context.Context, idempotencyToken string) (*models.CreatedEvent, error) {
	resp, err := g.svc.Events.List(g.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", tokenProperty, idempotencyToken)).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	ev := resp.Items[0]
	return &models.CreatedEvent{ID: ev.Id, Link: ev.HtmlLink}, nil
}

func eventTimes(ev *calendarapi.Event) (time.Time, time.Time, bool) {
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := time.Parse(time.RFC3339, ev.Start.DateTime)
	end, err2 := time.Parse(time.RFC3339, ev.End.DateTime)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
