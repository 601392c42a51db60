package models

import "time"

const (
	EventTypeRegistered    = "registered"
	EventTypeTrialing      = "trialing"
	EventTypeActive        = "active"
	EventTypeCanceled      = "canceled"
	EventTypePaymentFailed = "payment_failed"
	EventTypeUnparsed      = "unparsed"
)

const (
	ParseConfidenceHigh = "high"
	ParseConfidenceLow  = "low"
)

const (
	ChannelSourceSignup  = "signup"
	ChannelSourcePayment = "payment"
)

// LifecycleEvent is one parsed signal from the chat-ops message stream.
// The (message_ts, email, event_type) tuple is the dedup key: inserting the
// same tuple twice must leave exactly one row.
type LifecycleEvent struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	MessageTS          string    `gorm:"type:varchar(32);not null;index:ux_lifecycle_events_dedup,unique,priority:1" json:"message_ts"`
	Email              string    `gorm:"type:varchar(191);not null;index;index:ux_lifecycle_events_dedup,unique,priority:2" json:"email"`
	EventType          string    `gorm:"type:varchar(20);not null;index:ux_lifecycle_events_dedup,unique,priority:3" json:"event_type"`
	Timestamp          time.Time `gorm:"not null;index" json:"timestamp"`
	Plan               string    `gorm:"type:varchar(100)" json:"plan,omitempty"`
	CancellationReason string    `gorm:"type:varchar(255)" json:"cancellation_reason,omitempty"`
	RawMessage         string    `gorm:"type:text" json:"raw_message"`
	ParseConfidence    string    `gorm:"type:varchar(10);not null;default:'high'" json:"parse_confidence"`
	ChannelSource      string    `gorm:"type:varchar(10);not null" json:"channel_source"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsTyped reports whether the event carries a recognized lifecycle type
// rather than the low-confidence unparsed fallback.
func (e *LifecycleEvent) IsTyped() bool {
	return e.EventType != EventTypeUnparsed
}
