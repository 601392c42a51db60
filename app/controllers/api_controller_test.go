package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callsight/callsight/app/models"
	"github.com/callsight/callsight/internal/pkg/enrichment"
	"github.com/callsight/callsight/internal/pkg/fireflies"
	"github.com/callsight/callsight/internal/pkg/slack"
)

type stubPipeline struct {
	lastOpts enrichment.RunOptions
	report   *enrichment.RunReport
}

func (s *stubPipeline) Run(ctx context.Context, opts enrichment.RunOptions) (*enrichment.RunReport, error) {
	s.lastOpts = opts
	if s.report != nil {
		return s.report, nil
	}
	return &enrichment.RunReport{RunID: "run-1"}, nil
}

type stubCallSync struct{ report *fireflies.SyncReport }

func (s *stubCallSync) SyncCalls(ctx context.Context, since time.Time, hostEmail string) (*fireflies.SyncReport, error) {
	return s.report, nil
}

type stubEventSync struct{ report *slack.Report }

func (s *stubEventSync) SyncEvents(ctx context.Context, maxPages int) (*slack.Report, error) {
	return s.report, nil
}

type stubTranscripts struct{ detail *fireflies.TranscriptDetail }

func (s *stubTranscripts) TranscriptDetail(ctx context.Context, transcriptID string) (*fireflies.TranscriptDetail, error) {
	if s.detail == nil || s.detail.ID != transcriptID {
		return nil, errors.New("transcript " + transcriptID + " not found")
	}
	return s.detail, nil
}

type stubEnricher struct{ record *enrichment.Record }

func (s *stubEnricher) EnrichCall(ctx context.Context, call *models.Call) (*enrichment.Record, error) {
	return s.record, nil
}

type stubCallStore struct{ byID map[uint]*models.Call }

func (s *stubCallStore) Upsert(*models.Call) error                    { return nil }
func (s *stubCallStore) GetByID(id uint) (*models.Call, error)        { return s.byID[id], nil }
func (s *stubCallStore) GetByExternalID(string) (*models.Call, error) { return nil, nil }
func (s *stubCallStore) ListUnenriched(int) ([]models.Call, error)    { return nil, nil }
func (s *stubCallStore) ListSince(time.Time, int) ([]models.Call, error) {
	return nil, nil
}
func (s *stubCallStore) SaveEnrichment(uint, string, time.Time) error { return nil }
func (s *stubCallStore) Count() (int64, error)                        { return 0, nil }

type stubEventStore struct {
	events  map[string][]models.LifecycleEvent
	deleted []string
}

func (s *stubEventStore) CreateIfNotExists(*models.LifecycleEvent) (bool, error) { return true, nil }
func (s *stubEventStore) ListByEmail(email string) ([]models.LifecycleEvent, error) {
	return s.events[email], nil
}
func (s *stubEventStore) CountByType() (map[string]int64, error) { return nil, nil }
func (s *stubEventStore) DeleteByEmail(email string) (int64, error) {
	s.deleted = append(s.deleted, email)
	return int64(len(s.events[email])), nil
}

func newTestApp(t *testing.T, s Services) *fiber.App {
	t.Helper()
	Initialize(s)

	app := fiber.New()
	app.Post("/api/v1/sync/slack", HandleSyncSlackEvents)
	app.Post("/api/v1/sync/calls", HandleSyncCalls)
	app.Post("/api/v1/enrichment/run", HandleRunPipeline)
	app.Post("/api/v1/calls/:id/enrich", HandleEnrichCall)
	app.Get("/api/v1/calls/:id/enrichment", HandleGetCallEnrichment)
	app.Get("/api/v1/calls/:id/transcript", HandleGetCallTranscript)
	app.Get("/api/v1/events", HandleListEvents)
	app.Delete("/api/v1/events", HandlePurgeEvents)
	return app
}

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHandleRunPipelineRejectsOutOfRangeWorkers(t *testing.T) {
	pipeline := &stubPipeline{}
	app := newTestApp(t, Services{Pipeline: pipeline})

	req := httptest.NewRequest("POST", "/api/v1/enrichment/run", strings.NewReader(`{"workers":99}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleRunPipelinePassesOptions(t *testing.T) {
	pipeline := &stubPipeline{}
	app := newTestApp(t, Services{Pipeline: pipeline})

	req := httptest.NewRequest("POST", "/api/v1/enrichment/run", strings.NewReader(`{"sync_slack":true,"limit":5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.True(t, pipeline.lastOpts.SyncSlack)
	assert.Equal(t, 5, pipeline.lastOpts.Limit)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "run-1", body["run_id"])
}

func TestHandleEnrichCallNotFound(t *testing.T) {
	app := newTestApp(t, Services{
		Enricher: &stubEnricher{},
		Calls:    &stubCallStore{byID: map[uint]*models.Call{}},
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/calls/42/enrich", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleEnrichCallReturnsRecord(t *testing.T) {
	app := newTestApp(t, Services{
		Enricher: &stubEnricher{record: &enrichment.Record{FinalStatus: enrichment.StatusActive}},
		Calls: &stubCallStore{byID: map[uint]*models.Call{
			7: {ID: 7, ExternalID: "t7"},
		}},
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/calls/7/enrich", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, enrichment.StatusActive, body["final_status"])
}

func TestHandleGetCallEnrichmentEmbedsStoredRecord(t *testing.T) {
	enriched := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	app := newTestApp(t, Services{
		Calls: &stubCallStore{byID: map[uint]*models.Call{
			3: {
				ID:             3,
				ExternalID:     "t3",
				EnrichmentJSON: `{"final_status":"trialing"}`,
				EnrichedAt:     &enriched,
			},
		}},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/3/enrichment", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	record, ok := body["record"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "trialing", record["final_status"])
}

func TestHandleGetCallEnrichmentWithoutRecord(t *testing.T) {
	app := newTestApp(t, Services{
		Calls: &stubCallStore{byID: map[uint]*models.Call{3: {ID: 3}}},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/3/enrichment", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleGetCallTranscriptFetchesLiveDetail(t *testing.T) {
	detail := &fireflies.TranscriptDetail{}
	detail.ID = "t9"
	detail.Title = "Acme demo"
	app := newTestApp(t, Services{
		Transcripts: &stubTranscripts{detail: detail},
		Calls:       &stubCallStore{byID: map[uint]*models.Call{9: {ID: 9, ExternalID: "t9"}}},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/9/transcript", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "Acme demo", body["title"])
}

func TestHandleGetCallTranscriptUpstreamMissIs502(t *testing.T) {
	app := newTestApp(t, Services{
		Transcripts: &stubTranscripts{},
		Calls:       &stubCallStore{byID: map[uint]*models.Call{9: {ID: 9, ExternalID: "t9"}}},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/calls/9/transcript", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
}

func TestHandleListEventsRequiresEmail(t *testing.T) {
	app := newTestApp(t, Services{Events: &stubEventStore{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/events", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePurgeEventsNormalizesEmail(t *testing.T) {
	store := &stubEventStore{events: map[string][]models.LifecycleEvent{
		"lead@acme.com": {{Email: "lead@acme.com"}},
	}}
	app := newTestApp(t, Services{Events: store})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/api/v1/events?email=Lead%40Acme.com", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, store.deleted, 1)
	assert.Equal(t, "lead@acme.com", store.deleted[0])
}

func TestHandleSyncSlackEventsRejectsBadPageBound(t *testing.T) {
	app := newTestApp(t, Services{EventSync: &stubEventSync{report: &slack.Report{}}})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/sync/slack?max_pages=500", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleSyncCallsReturnsReport(t *testing.T) {
	app := newTestApp(t, Services{CallSync: &stubCallSync{report: &fireflies.SyncReport{Total: 2, Imported: 2}}})

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/sync/calls?days=7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, float64(2), body["imported"])
}
