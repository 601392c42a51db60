package calendly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/internal/pkg/apiclient"
	"github.com/callsight/callsight/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.calendly.com"
	pageSize          = 100
	maxEventPages     = 10
)

// Config is the immutable adapter configuration.
type Config struct {
	APIToken   string
	APIBaseURL string
}

// NewConfigFromEnv reads the Calendly adapter configuration.
func NewConfigFromEnv() Config {
	return Config{
		APIToken:   strings.TrimSpace(env.GetEnv("CALENDLY_API_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("CALENDLY_API_BASE_URL", defaultAPIBaseURL)),
	}
}

// Client calls the Calendly v2 API through the shared rate-limited wrapper.
type Client struct {
	cfg Config
	api *apiclient.Client

	// userURI is resolved lazily from /users/me and cached per client.
	userURI string
}

// NewClient creates a Calendly client from config.
func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{BearerToken: cfg.APIToken}),
	}
}

// CurrentUser resolves the authenticated user's resource URI.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	if c.userURI != "" {
		return c.userURI, nil
	}
	body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/users/me", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Resource struct {
			URI string `json:"uri"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Resource.URI == "" {
		return "", errors.New("calendly /users/me returned no resource uri")
	}
	c.userURI = out.Resource.URI
	return c.userURI, nil
}

type scheduledEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
}

type invitee struct {
	Email               string `json:"email"`
	Name                string `json:"name"`
	QuestionsAndAnswers []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"questions_and_answers"`
}

// MeetingsInWindow lists scheduled events in [minStart, maxStart] for the
// current user and expands each into one ScheduledMeeting per invitee.
func (c *Client) MeetingsInWindow(ctx context.Context, minStart, maxStart time.Time) ([]models.ScheduledMeeting, error) {
	userURI, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	var meetings []models.ScheduledMeeting
	pageToken := ""
	for page := 0; page < maxEventPages; page++ {
		events, next, err := c.scheduledEvents(ctx, userURI, minStart, maxStart, pageToken)
		if err != nil {
			return nil, err
		}

		for _, ev := range events {
			expanded, err := c.expandEvent(ctx, ev)
			if err != nil {
				return nil, err
			}
			meetings = append(meetings, expanded...)
		}

		if next == "" {
			break
		}
		pageToken = next
	}
	return meetings, nil
}

func (c *Client) scheduledEvents(ctx context.Context, userURI string, minStart, maxStart time.Time, pageToken string) ([]scheduledEvent, string, error) {
	q := url.Values{}
	q.Set("user", userURI)
	q.Set("min_start_time", minStart.UTC().Format(time.RFC3339))
	q.Set("max_start_time", maxStart.UTC().Format(time.RFC3339))
	q.Set("status", models.MeetingStatusActive)
	q.Set("count", fmt.Sprintf("%d", pageSize))
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}

	body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/scheduled_events", q)
	if err != nil {
		return nil, "", err
	}

	var out struct {
		Collection []scheduledEvent `json:"collection"`
		Pagination struct {
			NextPageToken string `json:"next_page_token"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", err
	}
	return out.Collection, out.Pagination.NextPageToken, nil
}

func (c *Client) expandEvent(ctx context.Context, ev scheduledEvent) ([]models.ScheduledMeeting, error) {
	eventID := path.Base(ev.URI)
	body, err := c.api.Get(ctx, c.cfg.APIBaseURL+"/scheduled_events/"+eventID+"/invitees", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Collection []invitee `json:"collection"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}

	meetings := make([]models.ScheduledMeeting, 0, len(out.Collection))
	for _, inv := range out.Collection {
		m := models.ScheduledMeeting{
			ExternalID:    eventID,
			InviteeEmail:  strings.ToLower(strings.TrimSpace(inv.Email)),
			InviteeName:   inv.Name,
			ScheduledTime: ev.StartTime,
			Status:        ev.Status,
			EventTypeName: ev.Name,
		}
		for _, qa := range inv.QuestionsAndAnswers {
			m.FormResponses = append(m.FormResponses, models.FormResponse{
				Question: qa.Question,
				Answer:   qa.Answer,
			})
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}
