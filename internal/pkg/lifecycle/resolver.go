package lifecycle

import (
	"strings"
	"time"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/app/repository"
)

// StatusResult is the single most significant lifecycle status for an
// identity, derived from its full event history.
type StatusResult struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Plan      string    `json:"plan,omitempty"`
}

// Resolver picks one status from all stored chat-ops events for an identity.
type Resolver struct {
	events repository.EventRepository
}

// NewResolver creates a resolver over the event store.
func NewResolver(events repository.EventRepository) *Resolver {
	return &Resolver{events: events}
}

// statusPriority ranks event types; lower wins. Note that priority is
// absolute over the whole history: an old "active" event outranks a newer
// "canceled" one. This mirrors the upstream behavior exactly and is flagged
// for product review rather than silently time-bounded here.
func statusPriority(eventType string) int {
	switch eventType {
	case models.EventTypeActive:
		return 1
	case models.EventTypeTrialing:
		return 2
	case models.EventTypeCanceled:
		return 3
	case models.EventTypePaymentFailed:
		return 4
	case models.EventTypeRegistered:
		return 5
	case models.EventTypeUnparsed:
		return 6
	default:
		return 7
	}
}

// LatestStatus returns the highest-priority event for the email, or nil when
// the identity has no stored events. A "not found" is a data condition, not
// an error.
func (r *Resolver) LatestStatus(email string) (*StatusResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	events, err := r.events.ListByEmail(email)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	best := events[0]
	for _, e := range events[1:] {
		p, bp := statusPriority(e.EventType), statusPriority(best.EventType)
		switch {
		case p < bp:
			best = e
		case p == bp && e.Timestamp.After(best.Timestamp):
			// Within the same priority tier, prefer the newest event.
			best = e
		}
	}

	return &StatusResult{
		Status:    best.EventType,
		Timestamp: best.Timestamp,
		Plan:      best.Plan,
	}, nil
}
