package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/app/repository"
	"github.com/callsight/callsight/internal/pkg/lifecycle"
	"github.com/callsight/callsight/internal/pkg/metrics/counter"
	"github.com/callsight/callsight/internal/pkg/stripe"
)

// LifecycleSource resolves the chat-ops status for an identity.
type LifecycleSource interface {
	LatestStatus(email string) (*lifecycle.StatusResult, error)
}

// MeetingSource finds the scheduled meeting for an identity.
type MeetingSource interface {
	FindMatch(ctx context.Context, email string, callTime *time.Time) (*models.ScheduledMeeting, error)
}

// BillingSource runs the cascading billing-customer match.
type BillingSource interface {
	Enrich(ctx context.Context, emails, names []string) (*stripe.MatchResult, error)
}

// Orchestrator merges the three sources into one enrichment record per call.
// Billing beats chat-ops for the final status; the scheduling source only
// ever contributes metadata.
type Orchestrator struct {
	lifecycle LifecycleSource
	meetings  MeetingSource
	billing   BillingSource
	calls     repository.CallRepository
	identity  IdentityConfig
	now       func() time.Time
	outcomes  func(status string) error
}

// NewOrchestrator wires the three sources and the call store.
func NewOrchestrator(
	lifecycleSrc LifecycleSource,
	meetings MeetingSource,
	billing BillingSource,
	calls repository.CallRepository,
	identity IdentityConfig,
) *Orchestrator {
	return &Orchestrator{
		lifecycle: lifecycleSrc,
		meetings:  meetings,
		billing:   billing,
		calls:     calls,
		identity:  identity,
		now:       func() time.Time { return time.Now().UTC() },
		outcomes:  counter.AddEnrichmentOutcome,
	}
}

// EnrichCall produces and persists the merged record for one call. Source
// failures are recorded on the record and never abort the other sources;
// only a persistence failure is returned as an error.
func (o *Orchestrator) EnrichCall(ctx context.Context, call *models.Call) (*Record, error) {
	record := &Record{
		FinalStatus: StatusUnmatched,
		EnrichedAt:  o.now(),
	}

	emails, names := extractIdentity(call, o.identity)
	if len(emails) == 0 {
		record.Reason = "no external participant email on call"
		record.deriveFlags()
		return record, o.persist(call, record)
	}
	record.ProspectEmail = emails[0]
	if len(names) > 0 {
		record.ProspectName = names[0]
	}

	o.applyLifecycle(record, emails)
	o.applyMeeting(ctx, record, emails, call.Date)
	o.applyBilling(ctx, record, emails, names)

	if record.FinalStatus == StatusUnmatched && record.Reason == "" {
		record.Reason = "no lifecycle signal in any source"
	}
	record.deriveFlags()
	return record, o.persist(call, record)
}

// applyLifecycle sets the provisional status from chat-ops events. Only the
// four typed statuses promote to a provisional final status; payment_failed
// and unparsed events stay metadata.
func (o *Orchestrator) applyLifecycle(record *Record, emails []string) {
	for _, email := range emails {
		res, err := o.lifecycle.LatestStatus(email)
		if err != nil {
			record.SourceErrors = append(record.SourceErrors, fmt.Sprintf("slack: %v", err))
			log.Warnf("[enrichment] lifecycle lookup failed for %s: %v", email, err)
			return
		}
		if res == nil {
			continue
		}

		record.SlackStatus = res
		record.addSource(SourceSlack)
		switch res.Status {
		case models.EventTypeActive:
			record.FinalStatus = StatusActive
		case models.EventTypeTrialing:
			record.FinalStatus = StatusTrialing
		case models.EventTypeCanceled:
			record.FinalStatus = StatusCanceled
		case models.EventTypeRegistered:
			record.FinalStatus = StatusRegistered
		}
		if record.Plan == "" {
			record.Plan = res.Plan
		}
		return
	}
}

// applyMeeting attaches scheduling metadata; it never touches the status.
func (o *Orchestrator) applyMeeting(ctx context.Context, record *Record, emails []string, callTime time.Time) {
	for _, email := range emails {
		meeting, err := o.meetings.FindMatch(ctx, email, &callTime)
		if err != nil {
			record.SourceErrors = append(record.SourceErrors, fmt.Sprintf("calendly: %v", err))
			log.Warnf("[enrichment] meeting lookup failed for %s: %v", email, err)
			return
		}
		if meeting != nil {
			record.Meeting = meeting
			record.addSource(SourceCalendly)
			return
		}
	}
}

// applyBilling runs the cascading customer match; a hit overrides whatever
// provisional status chat-ops produced.
func (o *Orchestrator) applyBilling(ctx context.Context, record *Record, emails, names []string) {
	res, err := o.billing.Enrich(ctx, emails, names)
	if err != nil {
		record.SourceErrors = append(record.SourceErrors, fmt.Sprintf("stripe: %v", err))
		log.Warnf("[enrichment] billing match failed: %v", err)
		return
	}
	if !res.Matched {
		return
	}

	record.addSource(SourceStripe)
	record.MatchMethod = res.Method
	record.MatchConfidence = res.Confidence
	if res.Customer != nil {
		record.BillingCustomerID = res.Customer.ID
		created := res.Customer.CreatedAt
		record.SignupDate = &created
	}
	if res.Summary != nil {
		record.FinalStatus = res.Summary.Status
		record.RecurringAmount = res.Summary.RecurringAmount
		if res.Summary.Plan != "" {
			record.Plan = res.Summary.Plan
		}
	}
}

func (o *Orchestrator) persist(call *models.Call, record *Record) error {
	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal enrichment record: %w", err)
	}
	if err := o.calls.SaveEnrichment(call.ID, string(blob), record.EnrichedAt); err != nil {
		return fmt.Errorf("persist enrichment for call %d: %w", call.ID, err)
	}
	if o.outcomes != nil {
		// Counter updates are best effort.
		if err := o.outcomes(record.FinalStatus); err != nil {
			log.Debugf("[enrichment] outcome counter update failed: %v", err)
		}
	}
	return nil
}
