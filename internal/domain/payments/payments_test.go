package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventCompletesCheckout(t *testing.T) {
	session := func(status PaymentStatus) *Session {
		return &Session{ID: "cs_1", PaymentStatus: status}
	}

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{name: "completed and paid", event: Event{Type: EventCheckoutCompleted, Session: session(PaymentStatusPaid)}, want: true},
		{name: "completed without charge", event: Event{Type: EventCheckoutCompleted, Session: session(PaymentStatusNoPaymentRequired)}, want: true},
		{name: "completed awaiting delayed payment", event: Event{Type: EventCheckoutCompleted, Session: session(PaymentStatusUnpaid)}},
		{name: "async payment succeeded", event: Event{Type: EventCheckoutAsyncPaymentPassed, Session: session(PaymentStatusPaid)}, want: true},
		{name: "completed without session", event: Event{Type: EventCheckoutCompleted}},
		{name: "unrelated type", event: Event{Type: "invoice.paid", Session: session(PaymentStatusPaid)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.CompletesCheckout())
		})
	}
}
