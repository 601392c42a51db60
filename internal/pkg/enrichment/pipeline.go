package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/app/repository"
	"github.com/callsight/callsight/internal/pkg/slack"
)

// DefaultWorkers bounds pipeline concurrency to what the slowest upstream
// tolerates; low single digits avoids rate-limit storms.
const DefaultWorkers = 3

// CallEnricher is the per-call enrichment entry point. *Orchestrator
// satisfies it.
type CallEnricher interface {
	EnrichCall(ctx context.Context, call *models.Call) (*Record, error)
}

// EventSyncer re-imports chat-ops events ahead of a batch run. *slack.Ingestor
// satisfies it.
type EventSyncer interface {
	SyncEvents(ctx context.Context, maxPages int) (*slack.Report, error)
}

// RunOptions controls one batch run.
type RunOptions struct {
	SyncSlack     bool `json:"sync_slack"`
	SlackMaxPages int  `json:"slack_max_pages" validate:"gte=0,lte=100"`
	Limit         int  `json:"limit" validate:"gte=0,lte=10000"`
	Workers       int  `json:"workers" validate:"gte=0,lte=16"`
}

// Validate checks the option bounds.
func (o RunOptions) Validate() error {
	v := validator.New()
	return v.Struct(o)
}

// RunReport summarizes one batch run. Per-call failures are collected, not
// propagated; the batch always runs to completion.
type RunReport struct {
	RunID       string        `json:"run_id"`
	Processed   int           `json:"processed"`
	Enriched    int           `json:"enriched"`
	Failed      int           `json:"failed"`
	SlackReport *slack.Report `json:"slack_report,omitempty"`
	Errors      []string      `json:"errors,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// Pipeline runs enrichment over all calls lacking a stored record.
type Pipeline struct {
	enricher CallEnricher
	syncer   EventSyncer
	calls    repository.CallRepository
}

// NewPipeline creates a batch pipeline. The syncer may be nil when chat-ops
// ingestion is managed elsewhere.
func NewPipeline(enricher CallEnricher, syncer EventSyncer, calls repository.CallRepository) *Pipeline {
	return &Pipeline{enricher: enricher, syncer: syncer, calls: calls}
}

// Run optionally refreshes chat-ops events, then enriches every unenriched
// call through a bounded worker pool. One call's failure never blocks the
// rest of the batch.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	if opts.SyncSlack && p.syncer != nil {
		slackReport, err := p.syncer.SyncEvents(ctx, opts.SlackMaxPages)
		if err != nil {
			// The batch still runs on previously ingested events.
			report.Errors = append(report.Errors, fmt.Sprintf("slack sync: %v", err))
			log.Warnf("[pipeline %s] slack sync failed: %v", report.RunID, err)
		} else {
			report.SlackReport = slackReport
		}
	}

	calls, err := p.calls.ListUnenriched(opts.Limit)
	if err != nil {
		return report, fmt.Errorf("list unenriched calls: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, workers)
	)

	for i := range calls {
		call := calls[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			err := p.enrichOne(ctx, &call)

			mu.Lock()
			defer mu.Unlock()
			report.Processed++
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("call %s: %v", call.ExternalID, err))
			} else {
				report.Enriched++
			}
		}()
	}
	wg.Wait()

	log.Infof("[pipeline %s] done: processed=%d enriched=%d failed=%d",
		report.RunID, report.Processed, report.Enriched, report.Failed)
	return report, nil
}

// enrichOne isolates a single call, converting panics into recorded
// failures so the batch survives.
func (p *Pipeline) enrichOne(ctx context.Context, call *models.Call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = p.enricher.EnrichCall(ctx, call)
	return err
}
