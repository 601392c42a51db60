package enrichment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/internal/pkg/slack"
)

type listCallRepo struct {
	fakeCallRepo
	unenriched []models.Call
	listErr    error
}

func (l *listCallRepo) ListUnenriched(limit int) ([]models.Call, error) {
	if l.listErr != nil {
		return nil, l.listErr
	}
	if limit > 0 && limit < len(l.unenriched) {
		return l.unenriched[:limit], nil
	}
	return l.unenriched, nil
}

type scriptedEnricher struct {
	mu      sync.Mutex
	seen    []string
	failOn  string
	panicOn string
}

func (s *scriptedEnricher) EnrichCall(ctx context.Context, call *models.Call) (*Record, error) {
	s.mu.Lock()
	s.seen = append(s.seen, call.ExternalID)
	s.mu.Unlock()

	if call.ExternalID == s.panicOn {
		panic("nil participant list")
	}
	if call.ExternalID == s.failOn {
		return nil, errors.New("upstream timeout")
	}
	return &Record{FinalStatus: StatusUnmatched}, nil
}

type stubSyncer struct {
	report *slack.Report
	err    error
	calls  int
}

func (s *stubSyncer) SyncEvents(ctx context.Context, maxPages int) (*slack.Report, error) {
	s.calls++
	return s.report, s.err
}

func batchCalls(ids ...string) []models.Call {
	calls := make([]models.Call, 0, len(ids))
	for i, id := range ids {
		calls = append(calls, models.Call{ID: uint(i + 1), ExternalID: id})
	}
	return calls
}

func TestRunProcessesWholeBatch(t *testing.T) {
	repo := &listCallRepo{unenriched: batchCalls("c1", "c2", "c3")}
	enricher := &scriptedEnricher{}
	p := NewPipeline(enricher, nil, repo)

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.Enriched)
	assert.Equal(t, 0, report.Failed)
	assert.NotEmpty(t, report.RunID)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, enricher.seen)
}

func TestRunIsolatesFailingCall(t *testing.T) {
	repo := &listCallRepo{unenriched: batchCalls("c1", "c2", "c3")}
	enricher := &scriptedEnricher{failOn: "c2"}
	p := NewPipeline(enricher, nil, repo)

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Enriched)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "c2")
}

func TestRunRecoversFromPanic(t *testing.T) {
	repo := &listCallRepo{unenriched: batchCalls("c1", "c2", "c3")}
	enricher := &scriptedEnricher{panicOn: "c1"}
	p := NewPipeline(enricher, nil, repo)

	report, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	// The panicking call is a recorded failure, not a dead batch.
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Enriched)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "panic")
}

func TestRunSlackSyncFailureDoesNotAbort(t *testing.T) {
	repo := &listCallRepo{unenriched: batchCalls("c1")}
	enricher := &scriptedEnricher{}
	syncer := &stubSyncer{err: errors.New("invalid_auth")}
	p := NewPipeline(enricher, syncer, repo)

	report, err := p.Run(context.Background(), RunOptions{SyncSlack: true})
	require.NoError(t, err)

	assert.Equal(t, 1, syncer.calls)
	assert.Nil(t, report.SlackReport)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "slack sync")
	// The batch still ran on previously ingested events.
	assert.Equal(t, 1, report.Enriched)
}

func TestRunAttachesSlackReport(t *testing.T) {
	repo := &listCallRepo{}
	syncer := &stubSyncer{report: &slack.Report{Total: 4, Imported: 3, Skipped: 1}}
	p := NewPipeline(&scriptedEnricher{}, syncer, repo)

	report, err := p.Run(context.Background(), RunOptions{SyncSlack: true, SlackMaxPages: 2})
	require.NoError(t, err)

	require.NotNil(t, report.SlackReport)
	assert.Equal(t, 3, report.SlackReport.Imported)
	assert.Equal(t, 0, report.Processed)
}

func TestRunSyncSkippedWithoutFlag(t *testing.T) {
	syncer := &stubSyncer{}
	p := NewPipeline(&scriptedEnricher{}, syncer, &listCallRepo{})

	_, err := p.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, syncer.calls)
}

func TestRunListFailureReturnsError(t *testing.T) {
	repo := &listCallRepo{listErr: errors.New("db gone")}
	p := NewPipeline(&scriptedEnricher{}, nil, repo)

	_, err := p.Run(context.Background(), RunOptions{})
	require.Error(t, err)
}

func TestRunHonorsLimit(t *testing.T) {
	repo := &listCallRepo{unenriched: batchCalls("c1", "c2", "c3", "c4")}
	enricher := &scriptedEnricher{}
	p := NewPipeline(enricher, nil, repo)

	report, err := p.Run(context.Background(), RunOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
}
