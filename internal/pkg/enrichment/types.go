package enrichment

import (
	"time"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/internal/pkg/lifecycle"
)

const (
	SourceSlack    = "slack"
	SourceCalendly = "calendly"
	SourceStripe   = "stripe"
)

// Final lifecycle statuses carried by an enrichment record. Billing-derived
// statuses override chat-ops ones; meeting data never sets a status.
const (
	StatusActive          = "active"
	StatusTrialing        = "trialing"
	StatusCanceled        = "canceled"
	StatusPastDue         = "past_due"
	StatusRegistered      = "registered"
	StatusNeverSubscribed = "never_subscribed"
	StatusUnmatched       = "unmatched"
)

// Record is the merged, authoritative per-call output of the reconciliation
// pipeline. It is stored as one JSON blob on the call row and overwritten on
// re-enrichment.
type Record struct {
	ProspectEmail string   `json:"prospect_email,omitempty"`
	ProspectName  string   `json:"prospect_name,omitempty"`
	Sources       []string `json:"sources"`
	FinalStatus   string   `json:"final_status"`
	Reason        string   `json:"reason,omitempty"`

	IsSignedUp bool `json:"is_signed_up"`
	IsActive   bool `json:"is_active"`
	IsChurned  bool `json:"is_churned"`

	// Chat-ops contribution.
	SlackStatus *lifecycle.StatusResult `json:"slack_status,omitempty"`

	// Scheduling contribution, metadata only.
	Meeting *models.ScheduledMeeting `json:"meeting,omitempty"`

	// Billing contribution.
	MatchMethod       string     `json:"match_method,omitempty"`
	MatchConfidence   string     `json:"match_confidence,omitempty"`
	BillingCustomerID string     `json:"billing_customer_id,omitempty"`
	SignupDate        *time.Time `json:"signup_date,omitempty"`
	Plan              string     `json:"plan,omitempty"`
	RecurringAmount   float64    `json:"recurring_amount,omitempty"`

	// Per-source failures from this best-effort merge; a source error
	// never aborts the remaining sources.
	SourceErrors []string `json:"source_errors,omitempty"`

	EnrichedAt time.Time `json:"enriched_at"`
}

func (r *Record) addSource(name string) {
	for _, s := range r.Sources {
		if s == name {
			return
		}
	}
	r.Sources = append(r.Sources, name)
}

// deriveFlags recomputes the convenience booleans from the final status and
// the source evidence.
func (r *Record) deriveFlags() {
	r.IsActive = r.FinalStatus == StatusActive || r.FinalStatus == StatusTrialing
	r.IsChurned = r.FinalStatus == StatusCanceled

	// Signed-up means a billing identity or a typed chat-ops signal
	// exists; a meeting alone proves nothing about an account.
	r.IsSignedUp = r.BillingCustomerID != "" ||
		(r.SlackStatus != nil && r.SlackStatus.Status != models.EventTypeUnparsed)
}
