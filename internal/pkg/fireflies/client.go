package fireflies

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/callsight/callsight/internal/pkg/apiclient"
	"github.com/callsight/callsight/internal/pkg/env"
)

const (
	defaultAPIURL = "https://api.fireflies.ai/graphql"
	pageSize      = 50
	maxPages      = 20
)

// transcriptsQuery lists transcript metadata. The date variable is a
// milliseconds epoch lower bound.
const transcriptsQuery = `query Transcripts($date: Float, $limit: Int, $skip: Int, $hostEmail: String) {
  transcripts(date: $date, limit: $limit, skip: $skip, host_email: $hostEmail) {
    id
    title
    date
    duration
    host_email
    organizer_email
    transcript_url
    participants
  }
}`

// transcriptDetailQuery fetches one transcript with speakers, sentences and
// the generated summary.
const transcriptDetailQuery = `query Transcript($transcriptId: String!) {
  transcript(id: $transcriptId) {
    id
    title
    date
    duration
    host_email
    organizer_email
    transcript_url
    participants
    speakers {
      id
      name
      email
      duration
      word_count
    }
    sentences {
      index
      text
      raw_text
      speaker_id
      speaker_name
      start_time
      end_time
    }
    summary {
      keywords
      action_items
      outline
      meeting_type
    }
  }
}`

// Config is the immutable adapter configuration.
type Config struct {
	APIKey string
	APIURL string
}

// NewConfigFromEnv reads the Fireflies adapter configuration.
func NewConfigFromEnv() Config {
	return Config{
		APIKey: strings.TrimSpace(env.GetEnv("FIREFLIES_API_KEY", "")),
		APIURL: strings.TrimSpace(env.GetEnv("FIREFLIES_API_URL", defaultAPIURL)),
	}
}

// Transcript is the call metadata returned by the transcript listing.
type Transcript struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	DateMillis     float64  `json:"date"`
	Duration       float64  `json:"duration"`
	HostEmail      string   `json:"host_email"`
	OrganizerEmail string   `json:"organizer_email"`
	TranscriptURL  string   `json:"transcript_url"`
	Participants   []string `json:"participants"`
}

// Date converts the API's milliseconds epoch into UTC time.
func (t Transcript) Date() time.Time {
	ms := int64(t.DateMillis)
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC()
}

// Speaker is one meeting participant on a transcript.
type Speaker struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Duration  float64 `json:"duration"`
	WordCount int     `json:"word_count"`
}

// Sentence is one transcript line with speaker attribution.
type Sentence struct {
	Index       int     `json:"index"`
	Text        string  `json:"text"`
	RawText     string  `json:"raw_text"`
	SpeakerID   string  `json:"speaker_id"`
	SpeakerName string  `json:"speaker_name"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
}

// Summary is the generated meeting summary.
type Summary struct {
	Keywords    []string `json:"keywords"`
	ActionItems []string `json:"action_items"`
	Outline     []string `json:"outline"`
	MeetingType string   `json:"meeting_type"`
}

// TranscriptDetail is the full transcript behind one listed call.
type TranscriptDetail struct {
	Transcript
	Speakers  []Speaker  `json:"speakers"`
	Sentences []Sentence `json:"sentences"`
	Summary   Summary    `json:"summary"`
}

// Client calls the Fireflies GraphQL API through the shared rate-limited
// wrapper.
type Client struct {
	cfg Config
	api *apiclient.Client
}

// NewClient creates a Fireflies client from config.
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	return &Client{
		cfg: cfg,
		api: apiclient.New(apiclient.Config{BearerToken: cfg.APIKey}),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// query runs one GraphQL request and unmarshals the data envelope into out.
// GraphQL-level errors come back with HTTP 200 and are surfaced here.
func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := c.api.PostJSON(ctx, c.cfg.APIURL, graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("graphql response has no data")
	}
	return json.Unmarshal(envelope.Data, out)
}

// TranscriptDetail fetches the full transcript for one upstream ID.
func (c *Client) TranscriptDetail(ctx context.Context, transcriptID string) (*TranscriptDetail, error) {
	var out struct {
		Transcript *TranscriptDetail `json:"transcript"`
	}
	variables := map[string]interface{}{"transcriptId": transcriptID}
	if err := c.query(ctx, transcriptDetailQuery, variables, &out); err != nil {
		return nil, err
	}
	if out.Transcript == nil || out.Transcript.ID == "" {
		return nil, fmt.Errorf("transcript %s not found", transcriptID)
	}
	return out.Transcript, nil
}

// TranscriptsSince pages through all transcripts recorded at or after since.
// An empty hostEmail lists transcripts of every host.
func (c *Client) TranscriptsSince(ctx context.Context, since time.Time, hostEmail string) ([]Transcript, error) {
	var all []Transcript

	skip := 0
	for page := 0; page < maxPages; page++ {
		variables := map[string]interface{}{
			"limit": pageSize,
			"skip":  skip,
		}
		if !since.IsZero() {
			variables["date"] = since.UnixMilli()
		}
		if hostEmail != "" {
			variables["hostEmail"] = hostEmail
		}

		var out struct {
			Transcripts []Transcript `json:"transcripts"`
		}
		if err := c.query(ctx, transcriptsQuery, variables, &out); err != nil {
			return nil, err
		}
		if len(out.Transcripts) == 0 {
			break
		}

		all = append(all, out.Transcripts...)
		if len(out.Transcripts) < pageSize {
			break
		}
		skip += len(out.Transcripts)
	}
	return all, nil
}
