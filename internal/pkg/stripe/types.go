package stripe

import "time"

const (
	SubStatusActive   = "active"
	SubStatusTrialing = "trialing"
	SubStatusPastDue  = "past_due"
	SubStatusCanceled = "canceled"

	// SubStatusNeverSubscribed is synthesized for customers without any
	// subscription; it never comes from the API.
	SubStatusNeverSubscribed = "never_subscribed"
)

const (
	MatchMethodExactEmail = "exact_email"
	MatchMethodDomain     = "email_domain"
	MatchMethodName       = "display_name"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Customer is an external billing party. Multiple customers sharing one
// email is expected upstream data noise, not an error.
type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionItem is one line of a subscription.
type SubscriptionItem struct {
	PlanName      string  `json:"plan_name"`
	UnitAmount    float64 `json:"unit_amount"` // major currency units
	Interval      string  `json:"interval"`
	IntervalCount int     `json:"interval_count"`
	Quantity      int     `json:"quantity"`
}

// Subscription belongs to exactly one customer.
type Subscription struct {
	ID                string             `json:"id"`
	Status            string             `json:"status"`
	StartedAt         time.Time          `json:"started_at"`
	CanceledAt        *time.Time         `json:"canceled_at,omitempty"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
	Items             []SubscriptionItem `json:"items"`
}

// SubscriptionSummary is the single effective state derived from a
// customer's subscription set.
type SubscriptionSummary struct {
	Status          string     `json:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CanceledAt      *time.Time `json:"canceled_at,omitempty"`
	Plan            string     `json:"plan,omitempty"`
	RecurringAmount float64    `json:"recurring_amount"`
}

// MatchResult is the outcome of the cascading identity match. Matched=false
// is a well-typed negative answer, never an error.
type MatchResult struct {
	Matched       bool                 `json:"matched"`
	Method        string               `json:"method,omitempty"`
	Confidence    string               `json:"confidence,omitempty"`
	Customer      *Customer            `json:"customer,omitempty"`
	Subscriptions []Subscription       `json:"-"`
	Summary       *SubscriptionSummary `json:"summary,omitempty"`
}
