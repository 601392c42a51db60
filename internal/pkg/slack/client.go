package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/callsight/callsight/internal/pkg/apiclient"
	"github.com/callsight/callsight/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://slack.com/api"

	// conversations.history caps page size at 200 for stable pagination.
	maxPageSize = 200
)

// Config is the immutable adapter configuration, resolved once at startup.
// Channel IDs live here instead of a module-level cache.
type Config struct {
	BotToken         string
	SignupChannelID  string
	PaymentChannelID string
	APIBaseURL       string
}

// NewConfigFromEnv reads the Slack adapter configuration.
func NewConfigFromEnv() Config {
	return Config{
		BotToken:         strings.TrimSpace(env.GetEnv("SLACK_BOT_TOKEN", "")),
		SignupChannelID:  strings.TrimSpace(env.GetEnv("SLACK_SIGNUP_CHANNEL_ID", "")),
		PaymentChannelID: strings.TrimSpace(env.GetEnv("SLACK_PAYMENT_CHANNEL_ID", "")),
		APIBaseURL:       strings.TrimSpace(env.GetEnv("SLACK_API_BASE_URL", defaultAPIBaseURL)),
	}
}

// Client calls the Slack Web API through the shared rate-limited wrapper.
type Client struct {
	cfg Config
	api *apiclient.Client
}

// NewClient creates a Slack client from config.
func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{BearerToken: cfg.BotToken}),
	}
}

// Message is one raw channel message.
type Message struct {
	Type string `json:"type"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   string `json:"ts"`
}

type historyResponse struct {
	OK               bool      `json:"ok"`
	Error            string    `json:"error"`
	Messages         []Message `json:"messages"`
	HasMore          bool      `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// AuthTest verifies the bot token against auth.test. A failure here is a
// configuration error; the token itself is never included in the result.
func (c *Client) AuthTest(ctx context.Context) (team string, err error) {
	body, err := c.api.PostForm(ctx, c.cfg.APIBaseURL+"/auth.test", url.Values{})
	if err != nil {
		return "", err
	}
	var out struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		Team  string `json:"team"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if !out.OK {
		return "", fmt.Errorf("slack auth.test failed: %s", out.Error)
	}
	return out.Team, nil
}

// History fetches one page of channel history. The returned cursor is empty
// on the last page.
func (c *Client) History(ctx context.Context, channelID, cursor string, limit int) ([]Message, string, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, "", errors.New("channel id is required")
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	form := url.Values{}
	form.Set("channel", channelID)
	form.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		form.Set("cursor", cursor)
	}

	body, err := c.api.PostForm(ctx, c.cfg.APIBaseURL+"/conversations.history", form)
	if err != nil {
		return nil, "", err
	}

	var out historyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", err
	}
	if !out.OK {
		return nil, "", fmt.Errorf("slack conversations.history failed: %s", out.Error)
	}

	next := ""
	if out.HasMore {
		next = out.ResponseMetadata.NextCursor
	}
	return out.Messages, next, nil
}
