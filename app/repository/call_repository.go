package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/callsight/callsight/app/models"
)

type callRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a call repository backed by GORM.
func NewCallRepository(db *gorm.DB) CallRepository {
	return &callRepository{db: db}
}

func (r *callRepository) Upsert(call *models.Call) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title",
			"date",
			"duration_minutes",
			"host_email",
			"organizer_email",
			"participants_json",
			"transcript_url",
			"updated_at",
		}),
	}).Create(call).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("external_id = ?", call.ExternalID).First(call).Error
}

func (r *callRepository) GetByID(id uint) (*models.Call, error) {
	var call models.Call
	if err := r.db.First(&call, id).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callRepository) GetByExternalID(externalID string) (*models.Call, error) {
	var call models.Call
	if err := r.db.Where("external_id = ?", externalID).First(&call).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callRepository) ListUnenriched(limit int) ([]models.Call, error) {
	var calls []models.Call
	q := r.db.Where("enriched_at IS NULL").Order("date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&calls).Error
	return calls, err
}

func (r *callRepository) ListSince(since time.Time, limit int) ([]models.Call, error) {
	var calls []models.Call
	q := r.db.Where("date >= ?", since).Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&calls).Error
	return calls, err
}

func (r *callRepository) SaveEnrichment(callID uint, enrichmentJSON string, enrichedAt time.Time) error {
	updates := map[string]interface{}{
		"enrichment_json": enrichmentJSON,
		"enriched_at":     &enrichedAt,
	}
	return r.db.Model(&models.Call{}).Where("id = ?", callID).Updates(updates).Error
}

func (r *callRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Call{}).Count(&n).Error
	return n, err
}
