package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar creates events on the user's primary calendar with a stored
// OAuth token (the usual desktop flow: authorize once, keep token.json).
type GoogleCalendar struct {
	service  *calendar.Service
	timezone string
}

func NewGoogleCalendar(ctx context.Context, credentialsFile, tokenFile, timezone string) (*GoogleCalendar, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(raw, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	tf, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	defer tf.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(tf).Decode(token); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, err
	}

	if timezone == "" {
		timezone = "Asia/Kolkata"
	}
	return &GoogleCalendar{service: service, timezone: timezone}, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, title, start, end string) (string, error) {
	if title == "" || start == "" || end == "" {
		return "", fmt.Errorf("event needs a title, a start time and an end time")
	}

	event := &calendar.Event{
		Summary: title,
		Start:   &calendar.EventDateTime{DateTime: start, TimeZone: g.timezone},
		End:     &calendar.EventDateTime{DateTime: end, TimeZone: g.timezone},
	}
	created, err := g.service.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating calendar event: %w", err)
	}
	return created.HtmlLink, nil
}
