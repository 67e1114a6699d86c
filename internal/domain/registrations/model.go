package registrations

import (
	"errors"
	"math"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

var ErrNotFound = errors.New("registration not found")

type Registration struct {
	ID      string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	EventID string `gorm:"not null" json:"event_id"`

	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  string  `gorm:"not null" json:"last_name"`
	Email     string  `gorm:"not null" json:"email"`
	Phone     string  `json:"phone"`
	Amount    float64 `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency  string  `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`

	Status                  Status  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StripeCheckoutSessionID *string `gorm:"column:stripe_checkout_session_id;index" json:"stripe_checkout_session_id,omitempty"`
	StripePaymentIntentID   *string `gorm:"column:stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	QRCodeDataURL           *string `gorm:"column:qr_code_data_url" json:"qr_code_data_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentConfirmation is what a successful checkout contributes to the
// pending -> paid transition.
type PaymentConfirmation struct {
	CheckoutSessionID string
	PaymentIntentID   string
	VerificationCode  string
}

func (r Registration) IsPaid() bool      { return r.Status == StatusPaid }
func (r Registration) IsCancelled() bool { return r.Status == StatusCancelled }

func (r Registration) HasCheckoutSession() bool {
	return r.StripeCheckoutSessionID != nil && *r.StripeCheckoutSessionID != ""
}

func (r Registration) VerificationCode() string {
	if r.QRCodeDataURL == nil {
		return ""
	}
	return *r.QRCodeDataURL
}

// AmountMinor returns the amount in minor currency units (cents).
func (r Registration) AmountMinor() int64 {
	return ToMinorUnits(r.Amount)
}

func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
