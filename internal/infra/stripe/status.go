package stripe

import (
	"strings"

	"concerto-app/internal/domain/payments"

	"github.com/stripe/stripe-go/v75"
)

// NormalizePaymentStatus maps a checkout session payment status onto the
// statuses the reconciliation engine understands.
func NormalizePaymentStatus(s stripe.CheckoutSessionPaymentStatus) payments.PaymentStatus {
	switch strings.TrimSpace(string(s)) {
	case "paid":
		return payments.PaymentStatusPaid
	case "no_payment_required":
		return payments.PaymentStatusNoPaymentRequired
	default:
		return payments.PaymentStatusUnpaid
	}
}
