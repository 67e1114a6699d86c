package store

import (
	"context"
	"errors"
	"fmt"

	"concerto-app/internal/domain/projects"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Projects struct {
	db *gorm.DB
}

func NewProjects(db *gorm.DB) *Projects {
	return &Projects{db: db}
}

func (s *Projects) Get(ctx context.Context, id string) (projects.Project, error) {
	var p projects.Project
	if _, err := uuid.Parse(id); err != nil {
		return p, projects.ErrNotFound
	}
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, projects.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

func (s *Projects) Create(ctx context.Context, p *projects.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *Projects) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&projects.Project{}).Error; err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

func (s *Projects) ListByOwner(ctx context.Context, userID string) ([]projects.Project, error) {
	var out []projects.Project
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *Projects) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	err := s.db.WithContext(ctx).
		Model(&projects.Project{}).
		Where("id = ?", id).
		Update("stripe_checkout_session_id", sessionID).Error
	if err != nil {
		return fmt.Errorf("attach checkout session to project %s: %w", id, err)
	}
	return nil
}

// MarkPaid flips payment_status to paid once. It reports whether this call
// made the change.
func (s *Projects) MarkPaid(ctx context.Context, id, sessionID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&projects.Project{}).
		Where("id = ? AND payment_status <> ?", id, projects.PaymentPaid).
		Updates(map[string]interface{}{
			"payment_status":             projects.PaymentPaid,
			"stripe_checkout_session_id": gorm.Expr("COALESCE(NULLIF(?, ''), stripe_checkout_session_id)", sessionID),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark project %s paid: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// TransitionStatus moves the project from one status to another and
// reports whether the row was still in from.
func (s *Projects) TransitionStatus(ctx context.Context, id string, from, to projects.Status) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&projects.Project{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("move project %s from %s to %s: %w", id, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Projects) Complete(ctx context.Context, id, outputURL string) (projects.Project, error) {
	err := s.db.WithContext(ctx).
		Model(&projects.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           projects.StatusCompleted,
			"output_image_url": outputURL,
		}).Error
	if err != nil {
		return projects.Project{}, fmt.Errorf("complete project %s: %w", id, err)
	}
	return s.Get(ctx, id)
}
