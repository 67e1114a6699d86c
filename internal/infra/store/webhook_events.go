package store

import (
	"context"
	"fmt"
	"time"

	"concerto-app/internal/domain/billing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEvents struct {
	db *gorm.DB
}

func NewWebhookEvents(db *gorm.DB) *WebhookEvents {
	return &WebhookEvents{db: db}
}

// Begin records the event and reports whether an earlier delivery was
// already processed successfully.
func (s *WebhookEvents) Begin(ctx context.Context, eventID, eventType string) (bool, error) {
	db := s.db.WithContext(ctx)
	ev := billing.WebhookEvent{Provider: "stripe", EventID: eventID, EventType: eventType}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ev).Error; err != nil {
		return false, fmt.Errorf("record webhook event %s: %w", eventID, err)
	}

	var existing billing.WebhookEvent
	if err := db.Where("event_id = ?", eventID).First(&existing).Error; err != nil {
		return false, fmt.Errorf("read webhook event %s: %w", eventID, err)
	}
	return existing.Processed(), nil
}

// Finish stamps the event as processed, keeping procErr when processing
// failed.
func (s *WebhookEvents) Finish(ctx context.Context, eventID string, procErr error) error {
	now := time.Now()
	updates := map[string]interface{}{"processed_at": &now, "processing_error": nil}
	if procErr != nil {
		msg := procErr.Error()
		updates["processing_error"] = &msg
	}
	err := s.db.WithContext(ctx).
		Model(&billing.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("finish webhook event %s: %w", eventID, err)
	}
	return nil
}
