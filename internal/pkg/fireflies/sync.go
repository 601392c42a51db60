package fireflies

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/app/repository"
)

// TranscriptLister is the listing surface Syncer needs. *Client satisfies it.
type TranscriptLister interface {
	TranscriptsSince(ctx context.Context, since time.Time, hostEmail string) ([]Transcript, error)
}

// SyncReport summarizes one call import run.
type SyncReport struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Errors   int      `json:"errors"`
	Messages []string `json:"error_messages,omitempty"`
}

// Syncer imports recorded calls into the local store. Upserts are keyed on
// the upstream transcript ID, so re-running a window is safe.
type Syncer struct {
	source TranscriptLister
	calls  repository.CallRepository
}

// NewSyncer creates a call syncer.
func NewSyncer(source TranscriptLister, calls repository.CallRepository) *Syncer {
	return &Syncer{source: source, calls: calls}
}

// SyncCalls fetches transcripts recorded at or after since and upserts each
// as a call row. A single bad transcript is counted and skipped, never fatal.
func (s *Syncer) SyncCalls(ctx context.Context, since time.Time, hostEmail string) (*SyncReport, error) {
	transcripts, err := s.source.TranscriptsSince(ctx, since, hostEmail)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	report := &SyncReport{Total: len(transcripts)}
	for _, t := range transcripts {
		call, err := callFromTranscript(t)
		if err != nil {
			report.Errors++
			report.Messages = append(report.Messages, fmt.Sprintf("transcript %s: %v", t.ID, err))
			continue
		}
		if err := s.calls.Upsert(call); err != nil {
			report.Errors++
			report.Messages = append(report.Messages, fmt.Sprintf("transcript %s: %v", t.ID, err))
			log.Warnf("[fireflies] upsert failed for transcript %s: %v", t.ID, err)
			continue
		}
		report.Imported++
	}

	log.Infof("[fireflies] call sync done: total=%d imported=%d errors=%d",
		report.Total, report.Imported, report.Errors)
	return report, nil
}

func callFromTranscript(t Transcript) (*models.Call, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("missing transcript id")
	}
	participants, err := json.Marshal(t.Participants)
	if err != nil {
		return nil, fmt.Errorf("encode participants: %w", err)
	}
	return &models.Call{
		ExternalID:       t.ID,
		Title:            t.Title,
		Date:             t.Date(),
		DurationMinutes:  int(t.Duration),
		HostEmail:        t.HostEmail,
		OrganizerEmail:   t.OrganizerEmail,
		ParticipantsJSON: string(participants),
		TranscriptURL:    t.TranscriptURL,
	}, nil
}
