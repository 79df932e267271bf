package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chxlky/project-board/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

// CalendarClient keeps one all-day Google Calendar event per card due date.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	boardURL   string
}

// NewCalendarClient authenticates with a service account given as the
// decoded JSON key.
func NewCalendarClient(ctx context.Context, serviceAccount map[string]any, calendarID, boardURL string) (*CalendarClient, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("google calendar ID is not configured")
	}

	jsonBytes, err := json.Marshal(serviceAccount)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal service account settings to JSON: %w", err)
	}

	// create credentials from JSON data
	config, err := google.JWTConfigFromJSON(jsonBytes, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials from JSON: %w", err)
	}

	return newCalendarClient(ctx, calendarID, boardURL, option.WithHTTPClient(config.Client(ctx)))
}

func newCalendarClient(ctx context.Context, calendarID, boardURL string, opts ...option.ClientOption) (*CalendarClient, error) {
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	return &CalendarClient{service: srv, calendarID: calendarID, boardURL: boardURL}, nil
}

// SyncDueDate creates the card's event, or updates it when the card already
// has one. It returns the event ID to store on the card.
func (c *CalendarClient) SyncDueDate(ctx context.Context, card models.Card) (string, error) {
	if card.EventID != "" {
		event, err := c.UpdateEvent(ctx, card, card.EventID)
		if err == nil {
			return event.Id, nil
		}
		if !isNotFound(err) {
			return "", err
		}
		zap.L().Info("Calendar event missing, recreating", zap.String("cardID", card.ID), zap.String("eventID", card.EventID))
	}

	event, err := c.CreateEvent(ctx, card)
	if err != nil {
		return "", err
	}
	return event.Id, nil
}

func (c *CalendarClient) CreateEvent(ctx context.Context, card models.Card) (*calendar.Event, error) {
	if card.DueDate == nil {
		return nil, fmt.Errorf("card does not have a due date, cannot create event")
	}

	createdEvent, err := c.service.Events.Insert(c.calendarID, c.eventFor(card)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event in Google Calendar: %w", err)
	}

	return createdEvent, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, card models.Card, eventID string) (*calendar.Event, error) {
	if card.DueDate == nil {
		return nil, fmt.Errorf("card does not have a due date, cannot update event")
	}

	event, err := c.service.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve event from Google Calendar: %w", err)
	}

	next := c.eventFor(card)
	event.Summary = next.Summary
	event.Description = next.Description
	event.Start = next.Start
	event.End = next.End

	updatedEvent, err := c.service.Events.Update(c.calendarID, event.Id, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to update event in Google Calendar: %w", err)
	}

	return updatedEvent, nil
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		// the event may already be gone
		if isNotFound(err) {
			zap.L().Info("Event not found in Google Calendar. Already deleted.", zap.String("eventID", eventID))
			return nil
		}
		return fmt.Errorf("unable to delete event from Google Calendar: %w", err)
	}

	return nil
}

func (c *CalendarClient) eventFor(card models.Card) *calendar.Event {
	description := fmt.Sprintf("Board card: %s", card.ID)
	if c.boardURL != "" {
		description = fmt.Sprintf("Board card: %s/cards/%s", c.boardURL, card.ID)
	}
	return &calendar.Event{
		Summary:     card.Title,
		Description: description,
		Start: &calendar.EventDateTime{
			Date: card.DueDate.Format(dateLayout),
		},
		End: &calendar.EventDateTime{
			Date: card.DueDate.AddDate(0, 0, 1).Format(dateLayout), // all-day event ends the next day
		},
	}
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone)
}
