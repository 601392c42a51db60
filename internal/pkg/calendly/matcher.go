package calendly

import (
	"context"
	"strings"
	"time"

	"github.com/callsight/callsight/app/models"
)

const (
	// Search window around a known call time, and the lookback used when
	// no call time is available.
	windowAroundCall = 7 * 24 * time.Hour
	lookbackNoCall   = 30 * 24 * time.Hour

	// A candidate further than this from the call time is considered an
	// unrelated meeting, not a match.
	matchTolerance = 30 * time.Minute
)

// MeetingSource lists scheduled meetings in a time window. *Client satisfies
// it; tests substitute fakes.
type MeetingSource interface {
	MeetingsInWindow(ctx context.Context, minStart, maxStart time.Time) ([]models.ScheduledMeeting, error)
}

// Matcher finds the scheduled meeting belonging to an identity.
type Matcher struct {
	source MeetingSource
}

// NewMatcher creates a matcher over a meeting source.
func NewMatcher(source MeetingSource) *Matcher {
	return &Matcher{source: source}
}

// FindMatch returns the meeting for the email, or nil when none qualifies.
// With a call time the window is ±7 days and the closest candidate within a
// 30-minute tolerance wins; without one, the most recent candidate from the
// last 30 days wins.
func (m *Matcher) FindMatch(ctx context.Context, email string, callTime *time.Time) (*models.ScheduledMeeting, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	var minStart, maxStart time.Time
	if callTime != nil {
		minStart = callTime.Add(-windowAroundCall)
		maxStart = callTime.Add(windowAroundCall)
	} else {
		maxStart = time.Now().UTC()
		minStart = maxStart.Add(-lookbackNoCall)
	}

	meetings, err := m.source.MeetingsInWindow(ctx, minStart, maxStart)
	if err != nil {
		return nil, err
	}

	var candidates []models.ScheduledMeeting
	for _, mt := range meetings {
		if strings.EqualFold(mt.InviteeEmail, email) {
			candidates = append(candidates, mt)
		}
	}

	return selectMeeting(candidates, callTime), nil
}

// selectMeeting applies the closeness/tolerance rule. With a call time, a
// candidate set with nothing inside the tolerance yields nil even though
// candidates exist.
func selectMeeting(candidates []models.ScheduledMeeting, callTime *time.Time) *models.ScheduledMeeting {
	if len(candidates) == 0 {
		return nil
	}

	if callTime == nil {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.ScheduledTime.After(best.ScheduledTime) {
				best = c
			}
		}
		return &best
	}

	var best *models.ScheduledMeeting
	bestDist := matchTolerance + 1
	for i := range candidates {
		dist := candidates[i].ScheduledTime.Sub(*callTime)
		if dist < 0 {
			dist = -dist
		}
		if dist <= matchTolerance && dist < bestDist {
			best = &candidates[i]
			bestDist = dist
		}
	}
	return best
}
