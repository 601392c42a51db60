package models

import "time"

// Call mirrors a recorded sales call fetched from the transcription platform.
// The enrichment pipeline stores its merged result as a JSON blob on the row;
// re-enrichment overwrites the blob, it never appends.
type Call struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ExternalID       string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_id"`
	Title            string     `gorm:"type:varchar(255)" json:"title"`
	Date             time.Time  `gorm:"not null;index" json:"date"`
	DurationMinutes  int        `gorm:"default:0" json:"duration_minutes"`
	HostEmail        string     `gorm:"type:varchar(191);index" json:"host_email,omitempty"`
	OrganizerEmail   string     `gorm:"type:varchar(191)" json:"organizer_email,omitempty"`
	ParticipantsJSON string     `gorm:"type:text" json:"participants_json"`
	TranscriptURL    string     `gorm:"type:varchar(512)" json:"transcript_url,omitempty"`
	EnrichmentJSON   string     `gorm:"type:longtext" json:"enrichment_json,omitempty"`
	EnrichedAt       *time.Time `gorm:"type:timestamp;default:null" json:"enriched_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
