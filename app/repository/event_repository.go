package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/callsight/callsight/app/models"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates an event repository backed by GORM.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) CreateIfNotExists(event *models.LifecycleEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "message_ts"},
			{Name: "email"},
			{Name: "event_type"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *eventRepository) ListByEmail(email string) ([]models.LifecycleEvent, error) {
	var events []models.LifecycleEvent
	err := r.db.Where("email = ?", email).Order("timestamp ASC").Find(&events).Error
	return events, err
}

func (r *eventRepository) CountByType() (map[string]int64, error) {
	type row struct {
		EventType string
		Total     int64
	}
	var rows []row
	err := r.db.Model(&models.LifecycleEvent{}).
		Select("event_type, COUNT(*) AS total").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.EventType] = r.Total
	}
	return counts, nil
}

func (r *eventRepository) DeleteByEmail(email string) (int64, error) {
	tx := r.db.Where("email = ?", email).Delete(&models.LifecycleEvent{})
	return tx.RowsAffected, tx.Error
}
