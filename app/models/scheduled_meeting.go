package models

import "time"

const (
	MeetingStatusActive   = "active"
	MeetingStatusCanceled = "canceled"
)

// FormResponse is one invitee question/answer pair, carried verbatim.
type FormResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScheduledMeeting is a scheduling-platform event matched to a call. It is
// fetched on demand and only persisted as part of the merged enrichment blob.
type ScheduledMeeting struct {
	ExternalID    string         `json:"external_id"`
	InviteeEmail  string         `json:"invitee_email"`
	InviteeName   string         `json:"invitee_name,omitempty"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Status        string         `json:"status"`
	EventTypeName string         `json:"event_type_name,omitempty"`
	FormResponses []FormResponse `json:"form_responses,omitempty"`
}
