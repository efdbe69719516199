package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
)

const (
	// TimeZone of every event pushed by CampusFlow.
	TimeZone = "America/Mexico_City"

	listWindow       = 30 * 24 * time.Hour
	listMaxResults   = 100
	appointmentSpan  = time.Hour
	defaultEventName = "Cita UCIC"
)

// Event is a Google Calendar event as returned by the API.
type Event map[string]interface{}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type reminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type attendee struct {
	Email string `json:"email"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Reminders   struct {
		UseDefault bool       `json:"useDefault"`
		Overrides  []reminder `json:"overrides"`
	} `json:"reminders"`
	Attendees []attendee `json:"attendees,omitempty"`
}

type createdEvent struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

func newEventBody(req models.CreateCalendarEventRequest) eventBody {
	title := req.Title
	if title == "" {
		title = defaultEventName
	}
	body := eventBody{
		Summary:     title,
		Description: req.Description,
		Start:       eventTime{DateTime: req.Start, TimeZone: TimeZone},
		End:         eventTime{DateTime: req.End, TimeZone: TimeZone},
	}
	body.Reminders.Overrides = []reminder{
		{Method: "popup", Minutes: 30},
		{Method: "email", Minutes: 60},
	}
	for _, email := range req.Attendees {
		body.Attendees = append(body.Attendees, attendee{Email: email})
	}
	return body
}

func (s *Service) call(ctx context.Context, method, path, accessToken string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := s.now()
	resp, err := s.client.Do(req)
	s.metrics.ObserveOutbound("google_calendar", s.now().Sub(start))
	if err != nil {
		return 0, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrProviderAPIError, resp.StatusCode, string(snippet))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode calendar response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// ListEvents returns the next 30 days of the user's primary calendar.
func (s *Service) ListEvents(ctx context.Context, userID string) ([]Event, error) {
	token, err := s.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	q := url.Values{}
	q.Set("timeMin", now.Format(time.RFC3339))
	q.Set("timeMax", now.Add(listWindow).Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprint(listMaxResults))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	var out struct {
		Items []Event `json:"items"`
	}
	if _, err := s.call(ctx, http.MethodGet, "/calendars/primary/events?"+q.Encode(), token, nil, &out); err != nil {
		s.log.Error("list events failed", "user_id", userID, "error", err)
		return nil, domain.NewInternalError(MsgListFailed, err)
	}
	if out.Items == nil {
		out.Items = []Event{}
	}
	return out.Items, nil
}

// CreateEvent inserts an event on the user's primary calendar.
func (s *Service) CreateEvent(ctx context.Context, userID string, req models.CreateCalendarEventRequest) (*models.CalendarEventResponse, error) {
	token, err := s.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	var created createdEvent
	if _, err := s.call(ctx, http.MethodPost, "/calendars/primary/events", token, newEventBody(req), &created); err != nil {
		s.log.Error("create event failed", "user_id", userID, "error", err)
		return nil, domain.NewInternalError(MsgCreateFailed, err)
	}
	return &models.CalendarEventResponse{Success: true, EventID: created.ID, HTMLLink: created.HTMLLink}, nil
}

// DeleteEvent removes an event. Events already gone remotely count as deleted.
func (s *Service) DeleteEvent(ctx context.Context, userID, eventID string) error {
	token, err := s.AccessToken(ctx, userID)
	if err != nil {
		return err
	}

	status, err := s.call(ctx, http.MethodDelete, "/calendars/primary/events/"+url.PathEscape(eventID), token, nil, nil)
	if status == http.StatusNotFound || status == http.StatusGone {
		return nil
	}
	if err != nil {
		s.log.Error("delete event failed", "user_id", userID, "event_id", eventID, "error", err)
		return domain.NewInternalError(MsgDeleteFailed, err)
	}
	return nil
}

// PushAppointment creates a one hour event for an appointment.
func (s *Service) PushAppointment(ctx context.Context, userID string, a *models.Appointment) (*models.CalendarEventResponse, error) {
	loc, err := time.LoadLocation(TimeZone)
	if err != nil {
		loc = time.UTC
	}
	start := a.ScheduledAt.In(loc)
	description := a.Description
	if a.LeadName != "" {
		if description != "" {
			description += "\n\n"
		}
		description += "Lead: " + a.LeadName
	}
	return s.CreateEvent(ctx, userID, models.CreateCalendarEventRequest{
		Title:       a.Title,
		Description: description,
		Start:       start.Format(time.RFC3339),
		End:         start.Add(appointmentSpan).Format(time.RFC3339),
	})
}
