package fireflies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callsight/callsight/app/models"
)

type stubLister struct {
	transcripts []Transcript
	err         error
}

func (s *stubLister) TranscriptsSince(ctx context.Context, since time.Time, hostEmail string) ([]Transcript, error) {
	return s.transcripts, s.err
}

type upsertRepo struct {
	calls   map[string]*models.Call
	failFor string
}

func newUpsertRepo() *upsertRepo { return &upsertRepo{calls: map[string]*models.Call{}} }

func (r *upsertRepo) Upsert(call *models.Call) error {
	if call.ExternalID == r.failFor {
		return errors.New("deadlock")
	}
	r.calls[call.ExternalID] = call
	return nil
}

func (r *upsertRepo) GetByID(uint) (*models.Call, error)              { return nil, nil }
func (r *upsertRepo) GetByExternalID(string) (*models.Call, error)    { return nil, nil }
func (r *upsertRepo) ListUnenriched(int) ([]models.Call, error)       { return nil, nil }
func (r *upsertRepo) ListSince(time.Time, int) ([]models.Call, error) { return nil, nil }
func (r *upsertRepo) SaveEnrichment(uint, string, time.Time) error    { return nil }
func (r *upsertRepo) Count() (int64, error)                           { return 0, nil }

func TestSyncCallsImportsTranscripts(t *testing.T) {
	lister := &stubLister{transcripts: []Transcript{
		{
			ID:           "t1",
			Title:        "Acme demo",
			DateMillis:   1743516000000,
			Duration:     42.7,
			HostEmail:    "sales@ourco.com",
			Participants: []string{"sales@ourco.com", "lead@acme.com"},
		},
		{ID: "t2", Title: "Globex intro", DateMillis: 1743519600000},
	}}
	repo := newUpsertRepo()
	s := NewSyncer(lister, repo)

	report, err := s.SyncCalls(context.Background(), time.Time{}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Errors)

	call := repo.calls["t1"]
	require.NotNil(t, call)
	assert.Equal(t, "Acme demo", call.Title)
	assert.Equal(t, 42, call.DurationMinutes)
	assert.Equal(t, time.Date(2025, 4, 1, 14, 0, 0, 0, time.UTC), call.Date)
	assert.JSONEq(t, `["sales@ourco.com","lead@acme.com"]`, call.ParticipantsJSON)
}

func TestSyncCallsSkipsBadTranscript(t *testing.T) {
	lister := &stubLister{transcripts: []Transcript{
		{ID: ""},
		{ID: "t2"},
	}}
	repo := newUpsertRepo()
	s := NewSyncer(lister, repo)

	report, err := s.SyncCalls(context.Background(), time.Time{}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Errors)
	assert.Contains(t, repo.calls, "t2")
}

func TestSyncCallsCountsUpsertFailures(t *testing.T) {
	lister := &stubLister{transcripts: []Transcript{{ID: "t1"}, {ID: "t2"}}}
	repo := newUpsertRepo()
	repo.failFor = "t1"
	s := NewSyncer(lister, repo)

	report, err := s.SyncCalls(context.Background(), time.Time{}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Errors)
	require.Len(t, report.Messages, 1)
	assert.Contains(t, report.Messages[0], "t1")
}

func TestSyncCallsListFailureIsFatal(t *testing.T) {
	s := NewSyncer(&stubLister{err: errors.New("401")}, newUpsertRepo())
	_, err := s.SyncCalls(context.Background(), time.Time{}, "")
	require.Error(t, err)
}
