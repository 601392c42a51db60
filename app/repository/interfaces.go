package repository

import (
	"time"

	"github.com/callsight/callsight/app/models"
)

// EventRepository defines database operations for ingested lifecycle events.
type EventRepository interface {
	// CreateIfNotExists inserts the event unless its dedup key already
	// exists. Returns true when a new row was written.
	CreateIfNotExists(event *models.LifecycleEvent) (bool, error)
	ListByEmail(email string) ([]models.LifecycleEvent, error)
	CountByType() (map[string]int64, error)
	// DeleteByEmail is the explicit admin purge; events are otherwise
	// never updated or deleted.
	DeleteByEmail(email string) (int64, error)
}

// CallRepository defines database operations for recorded sales calls and
// their enrichment blobs.
type CallRepository interface {
	Upsert(call *models.Call) error
	GetByID(id uint) (*models.Call, error)
	GetByExternalID(externalID string) (*models.Call, error)
	ListUnenriched(limit int) ([]models.Call, error)
	ListSince(since time.Time, limit int) ([]models.Call, error)
	SaveEnrichment(callID uint, enrichmentJSON string, enrichedAt time.Time) error
	Count() (int64, error)
}
