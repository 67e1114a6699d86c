package projects

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

var ErrNotFound = errors.New("project not found")

type Project struct {
	ID                      string        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                  string        `gorm:"type:uuid;not null;index" json:"user_id"`
	InputImageURL           string        `gorm:"not null" json:"input_image_url"`
	OutputImageURL          *string       `json:"output_image_url,omitempty"`
	Prompt                  *string       `json:"prompt,omitempty"`
	Status                  Status        `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus           PaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	StripeCheckoutSessionID *string       `gorm:"column:stripe_checkout_session_id" json:"stripe_checkout_session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
