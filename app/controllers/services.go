package controllers

import (
	"context"
	"time"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/app/repository"
	"github.com/callsight/callsight/internal/pkg/enrichment"
	"github.com/callsight/callsight/internal/pkg/fireflies"
	"github.com/callsight/callsight/internal/pkg/slack"
	"github.com/callsight/callsight/internal/pkg/statistics"
)

// PipelineRunner runs one batch enrichment pass. *enrichment.Pipeline
// satisfies it.
type PipelineRunner interface {
	Run(ctx context.Context, opts enrichment.RunOptions) (*enrichment.RunReport, error)
}

// CallSyncer imports recorded calls. *fireflies.Syncer satisfies it.
type CallSyncer interface {
	SyncCalls(ctx context.Context, since time.Time, hostEmail string) (*fireflies.SyncReport, error)
}

// EventSyncer imports chat-ops events. *slack.Ingestor satisfies it.
type EventSyncer interface {
	SyncEvents(ctx context.Context, maxPages int) (*slack.Report, error)
}

// CallEnricher enriches one call. *enrichment.Orchestrator satisfies it.
type CallEnricher interface {
	EnrichCall(ctx context.Context, call *models.Call) (*enrichment.Record, error)
}

// TranscriptSource fetches full transcripts on demand. *fireflies.Client
// satisfies it.
type TranscriptSource interface {
	TranscriptDetail(ctx context.Context, transcriptID string) (*fireflies.TranscriptDetail, error)
}

// Services carries the wired application services the handlers dispatch to.
type Services struct {
	Pipeline    PipelineRunner
	CallSync    CallSyncer
	EventSync   EventSyncer
	Enricher    CallEnricher
	Transcripts TranscriptSource
	Billing     statistics.MRRSource
	Events      repository.EventRepository
	Calls       repository.CallRepository
}

var services Services

// Initialize installs the service set the handlers use. Called once at
// startup, before any route is served.
func Initialize(s Services) {
	services = s
}
