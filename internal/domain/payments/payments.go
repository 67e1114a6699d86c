package payments

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncPaymentPassed = "checkout.session.async_payment_succeeded"
)

type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// CheckoutRequest describes a single-line-item hosted checkout.
type CheckoutRequest struct {
	Currency           string
	AmountMinor        int64
	ProductName        string
	ProductDescription string
	CustomerEmail      string
	Metadata           map[string]string
	// PaymentMetadata is copied onto the resulting payment intent.
	PaymentMetadata map[string]string
	SuccessURL      string
	CancelURL       string
}

type Session struct {
	ID              string
	URL             string
	PaymentStatus   PaymentStatus
	PaymentIntentID string
	Metadata        map[string]string
}

func (s Session) IsPaid() bool { return s.PaymentStatus == PaymentStatusPaid }

// Event is a verified gateway notification. Session is set for checkout
// session events only.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// CompletesCheckout reports whether the event means the payer finished
// paying for a checkout session. A completed session still waiting on a
// delayed payment method does not count until its async success event.
func (e Event) CompletesCheckout() bool {
	if e.Session == nil {
		return false
	}
	switch e.Type {
	case EventCheckoutCompleted:
		return e.Session.PaymentStatus == PaymentStatusPaid ||
			e.Session.PaymentStatus == PaymentStatusNoPaymentRequired
	case EventCheckoutAsyncPaymentPassed:
		return true
	default:
		return false
	}
}
