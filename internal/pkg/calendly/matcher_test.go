package calendly

import (
	"context"
	"testing"
	"time"

	"github.com/callsight/callsight/app/models"
)

type fakeMeetingSource struct {
	meetings []models.ScheduledMeeting
	calls    int
	lastMin  time.Time
	lastMax  time.Time
}

func (f *fakeMeetingSource) MeetingsInWindow(ctx context.Context, minStart, maxStart time.Time) ([]models.ScheduledMeeting, error) {
	f.calls++
	f.lastMin, f.lastMax = minStart, maxStart
	return f.meetings, nil
}

func meetingAt(email string, t time.Time) models.ScheduledMeeting {
	return models.ScheduledMeeting{
		ExternalID:    "ev-" + t.Format("150405"),
		InviteeEmail:  email,
		ScheduledTime: t,
		Status:        models.MeetingStatusActive,
	}
}

func TestFindMatchClosestWithinTolerance(t *testing.T) {
	callTime := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	src := &fakeMeetingSource{meetings: []models.ScheduledMeeting{
		meetingAt("lead@acme.com", callTime.Add(-35*time.Minute)), // 13:25
		meetingAt("lead@acme.com", callTime.Add(-25*time.Minute)), // 13:35
	}}

	got, err := NewMatcher(src).FindMatch(context.Background(), "lead@acme.com", &callTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a match")
	}
	if !got.ScheduledTime.Equal(callTime.Add(-25 * time.Minute)) {
		t.Fatalf("expected the 13:35 meeting, got %v", got.ScheduledTime)
	}
}

func TestFindMatchLoneCandidateOutsideToleranceIsNil(t *testing.T) {
	callTime := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	src := &fakeMeetingSource{meetings: []models.ScheduledMeeting{
		meetingAt("lead@acme.com", callTime.Add(-60*time.Minute)), // 13:00
	}}

	got, err := NewMatcher(src).FindMatch(context.Background(), "lead@acme.com", &callTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a candidate 60 minutes away, got %+v", got)
	}
}

func TestFindMatchNoCallTimePicksMostRecent(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	src := &fakeMeetingSource{meetings: []models.ScheduledMeeting{
		meetingAt("lead@acme.com", older),
		meetingAt("lead@acme.com", newer),
		meetingAt("other@corp.io", newer.Add(time.Hour)),
	}}

	got, err := NewMatcher(src).FindMatch(context.Background(), "LEAD@ACME.COM", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || !got.ScheduledTime.Equal(newer) {
		t.Fatalf("expected most recent own meeting, got %+v", got)
	}
}

func TestFindMatchWindowAroundCallTime(t *testing.T) {
	callTime := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	src := &fakeMeetingSource{}

	if _, err := NewMatcher(src).FindMatch(context.Background(), "x@y.com", &callTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one window query, got %d", src.calls)
	}
	if !src.lastMin.Equal(callTime.AddDate(0, 0, -7)) || !src.lastMax.Equal(callTime.AddDate(0, 0, 7)) {
		t.Fatalf("unexpected window: %v .. %v", src.lastMin, src.lastMax)
	}
}

func TestFindMatchEmptyEmailSkipsLookup(t *testing.T) {
	src := &fakeMeetingSource{}
	got, err := NewMatcher(src).FindMatch(context.Background(), "  ", nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil/nil, got %v/%v", got, err)
	}
	if src.calls != 0 {
		t.Fatalf("expected no upstream call without an identity")
	}
}
