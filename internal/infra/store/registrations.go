package store

import (
	"context"
	"errors"
	"fmt"

	"concerto-app/internal/domain/registrations"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registrations is the elevated, owner-agnostic registration store. Owner
// checks happen in the caller.
type Registrations struct {
	db *gorm.DB
}

func NewRegistrations(db *gorm.DB) *Registrations {
	return &Registrations{db: db}
}

func (s *Registrations) Get(ctx context.Context, id string) (registrations.Registration, error) {
	var reg registrations.Registration
	if _, err := uuid.Parse(id); err != nil {
		return reg, registrations.ErrNotFound
	}
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return reg, registrations.ErrNotFound
	}
	if err != nil {
		return reg, fmt.Errorf("get registration %s: %w", id, err)
	}
	return reg, nil
}

func (s *Registrations) Create(ctx context.Context, reg *registrations.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(reg).Error; err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *Registrations) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&registrations.Registration{}).Error; err != nil {
		return fmt.Errorf("delete registration %s: %w", id, err)
	}
	return nil
}

func (s *Registrations) ListByOwner(ctx context.Context, userID string) ([]registrations.Registration, error) {
	var regs []registrations.Registration
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&regs).Error
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

func (s *Registrations) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	res := s.db.WithContext(ctx).
		Model(&registrations.Registration{}).
		Where("id = ?", id).
		Update("stripe_checkout_session_id", sessionID)
	if res.Error != nil {
		return fmt.Errorf("attach checkout session to %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return registrations.ErrNotFound
	}
	return nil
}

// RestartCheckout points a still-pending registration at a fresh checkout
// session and forgets the previous payment reference.
func (s *Registrations) RestartCheckout(ctx context.Context, id, sessionID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&registrations.Registration{}).
		Where("id = ? AND status = ?", id, registrations.StatusPending).
		Updates(map[string]interface{}{
			"stripe_checkout_session_id": sessionID,
			"stripe_payment_intent_id":   nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("restart checkout for %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkPaid performs the pending -> paid transition. Only one caller ever
// gets true for a given registration; everyone else lost the race or found
// the registration outside pending. An existing verification code is kept.
func (s *Registrations) MarkPaid(ctx context.Context, id string, conf registrations.PaymentConfirmation) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&registrations.Registration{}).
		Where("id = ? AND status = ?", id, registrations.StatusPending).
		Updates(map[string]interface{}{
			"status":                     registrations.StatusPaid,
			"stripe_checkout_session_id": gorm.Expr("COALESCE(NULLIF(?, ''), stripe_checkout_session_id)", conf.CheckoutSessionID),
			"stripe_payment_intent_id":   gorm.Expr("COALESCE(NULLIF(?, ''), stripe_payment_intent_id)", conf.PaymentIntentID),
			"qr_code_data_url":           gorm.Expr("COALESCE(qr_code_data_url, NULLIF(?, ''))", conf.VerificationCode),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark registration %s paid: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveVerificationCode stores code unless one is already persisted and
// returns whichever code the row holds afterwards.
func (s *Registrations) SaveVerificationCode(ctx context.Context, id, code string) (string, error) {
	err := s.db.WithContext(ctx).
		Model(&registrations.Registration{}).
		Where("id = ? AND qr_code_data_url IS NULL", id).
		Update("qr_code_data_url", code).Error
	if err != nil {
		return "", fmt.Errorf("save verification code for %s: %w", id, err)
	}

	reg, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return reg.VerificationCode(), nil
}
