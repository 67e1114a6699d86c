package billing

import "time"

// WebhookEvent records every signature-verified provider event.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey"`
	Provider        string     `gorm:"type:varchar(20);not null;default:'stripe'"`
	EventID         string     `gorm:"not null;uniqueIndex"`
	EventType       string     `gorm:"not null"`
	ProcessedAt     *time.Time `gorm:"column:processed_at"`
	ProcessingError *string    `gorm:"column:processing_error"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e WebhookEvent) Processed() bool {
	return e.ProcessedAt != nil && e.ProcessingError == nil
}
