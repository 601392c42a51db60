package slack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/app/repository"
)

const DefaultMaxPages = 10

// Report summarizes one ingestion run.
type Report struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   int      `json:"errors"`
	Messages []string `json:"error_messages,omitempty"`
}

// Ingestor paginates channel history, extracts typed lifecycle events and
// persists them idempotently on the dedup key.
type Ingestor struct {
	client *Client
	events repository.EventRepository
	cfg    Config
}

// NewIngestor creates an ingestor for the configured signup/payment channels.
func NewIngestor(cfg Config, client *Client, events repository.EventRepository) *Ingestor {
	return &Ingestor{client: client, events: events, cfg: cfg}
}

// SyncEvents walks both channels up to maxPages pages each. Errors on
// individual messages are counted and do not abort the page loop; duplicate
// inserts are counted as skipped.
func (i *Ingestor) SyncEvents(ctx context.Context, maxPages int) (*Report, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	report := &Report{}
	channels := []struct {
		id     string
		source string
	}{
		{i.cfg.SignupChannelID, models.ChannelSourceSignup},
		{i.cfg.PaymentChannelID, models.ChannelSourcePayment},
	}

	for _, ch := range channels {
		if ch.id == "" {
			continue
		}
		if err := i.syncChannel(ctx, ch.id, ch.source, maxPages, report); err != nil {
			// A channel-level failure (auth, network exhaustion) still
			// lets the other channel proceed.
			report.Errors++
			report.Messages = append(report.Messages, fmt.Sprintf("channel %s: %v", ch.id, err))
			log.Errorf("[slack] channel sync failed for %s: %v", ch.id, err)
		}
	}

	log.Infof("[slack] sync done: total=%d imported=%d skipped=%d errors=%d",
		report.Total, report.Imported, report.Skipped, report.Errors)
	return report, nil
}

func (i *Ingestor) syncChannel(ctx context.Context, channelID, source string, maxPages int, report *Report) error {
	cursor := ""
	for page := 0; page < maxPages; page++ {
		messages, next, err := i.client.History(ctx, channelID, cursor, maxPageSize)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			report.Total++
			if err := i.processMessage(msg, source, report); err != nil {
				report.Errors++
				report.Messages = append(report.Messages, err.Error())
			}
		}

		if next == "" {
			break
		}
		cursor = next
	}
	return nil
}

// processMessage extracts at most one event from a message and writes it
// idempotently.
func (i *Ingestor) processMessage(msg Message, source string, report *Report) error {
	text := msg.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}

	email := extractEmail(text)
	if email == "" {
		// Without an identity there is nothing to reconcile against.
		return nil
	}

	eventType := matchEventType(text)
	confidence := models.ParseConfidenceHigh
	if eventType == "" {
		// Keep recall: an email-bearing message we cannot type still
		// lands as a low-confidence unparsed event.
		eventType = models.EventTypeUnparsed
		confidence = models.ParseConfidenceLow
	}

	event := &models.LifecycleEvent{
		MessageTS:       msg.TS,
		Email:           email,
		EventType:       eventType,
		Timestamp:       messageTime(msg.TS),
		RawMessage:      text,
		ParseConfidence: confidence,
		ChannelSource:   source,
	}
	if eventType == models.EventTypeCanceled {
		event.CancellationReason = extractCancellationReason(text)
	}
	if eventType != models.EventTypeUnparsed {
		event.Plan = extractPlan(text)
	}

	created, err := i.events.CreateIfNotExists(event)
	if err != nil {
		return fmt.Errorf("message %s: %w", msg.TS, err)
	}
	if created {
		report.Imported++
	} else {
		report.Skipped++
	}
	return nil
}

// messageTime converts a Slack "seconds.micros" timestamp into time.Time.
func messageTime(ts string) time.Time {
	f, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil || f <= 0 {
		return time.Now().UTC()
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
