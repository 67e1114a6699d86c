package tickets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebhookConfirmsPendingRegistration(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	h.deliver(completedEvent("evt_1", paidSession("cs_r1", "r1")))

	res, err := h.engine.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, "r1", res.RegistrationID)
	assert.True(t, res.Notified)

	reg := h.store.snapshot("r1")
	assert.Equal(t, registrations.StatusPaid, reg.Status)
	require.NotNil(t, reg.StripePaymentIntentID)
	assert.Equal(t, "pi_r1", *reg.StripePaymentIntentID)
	assert.NotEmpty(t, reg.VerificationCode())

	require.Equal(t, 1, h.sender.count())
	sent := h.sender.sent[0]
	assert.Equal(t, "ada@example.com", sent.To)
	assert.Equal(t, reg.VerificationCode(), sent.VerificationCode)
	assert.Equal(t, "concerto-billet-r1.pdf", sent.Filename)
	assert.NotEmpty(t, sent.PDF)
}

func TestHandleWebhookRedeliveryIsIdempotent(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	h.deliver(completedEvent("evt_1", paidSession("cs_r1", "r1")))

	first, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)
	code := h.store.snapshot("r1").VerificationCode()

	second, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, first.Outcome)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, code, h.store.snapshot("r1").VerificationCode())
	assert.Equal(t, 1, h.sender.count())
}

func TestHandleWebhookSecondEventForPaidRegistration(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	ctx := context.Background()

	h.deliver(completedEvent("evt_1", paidSession("cs_r1", "r1")))
	_, err := h.engine.HandleWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	code := h.store.snapshot("r1").VerificationCode()

	async := paidSession("cs_r1", "r1")
	h.deliver(payments.Event{ID: "evt_2", Type: payments.EventCheckoutAsyncPaymentPassed, Session: &async})
	res, err := h.engine.HandleWebhook(ctx, nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadySettled, res.Outcome)
	assert.False(t, res.Notified)
	assert.Equal(t, code, h.store.snapshot("r1").VerificationCode())
	assert.Equal(t, 1, h.sender.count())
}

func TestHandleWebhookWaitsForDelayedPayment(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	ctx := context.Background()

	awaiting := paidSession("cs_r1", "r1")
	awaiting.PaymentStatus = payments.PaymentStatusUnpaid
	h.deliver(completedEvent("evt_1", awaiting))
	res, err := h.engine.HandleWebhook(ctx, nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, registrations.StatusPending, h.store.snapshot("r1").Status)
	assert.Zero(t, h.sender.count())

	settled := paidSession("cs_r1", "r1")
	h.deliver(payments.Event{ID: "evt_2", Type: payments.EventCheckoutAsyncPaymentPassed, Session: &settled})
	res, err = h.engine.HandleWebhook(ctx, nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, registrations.StatusPaid, h.store.snapshot("r1").Status)
	assert.Equal(t, 1, h.sender.count())
}

func TestHandleWebhookRejectsUntrustedDeliveries(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason ErrorReason
	}{
		{name: "bad signature", err: payments.ErrInvalidSignature, reason: ReasonInvalidSignature},
		{name: "malformed payload", err: fmt.Errorf("decode: %w", payments.ErrMalformedEvent), reason: ReasonInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(pendingRegistration("r1", "u1"))
			h.gateway.parseFn = func([]byte, string) (payments.Event, error) { return payments.Event{}, tt.err }

			_, err := h.engine.HandleWebhook(context.Background(), []byte("{}"), "bad")
			require.Error(t, err)
			assert.Equal(t, tt.reason, reasonOf(err))
			assert.Equal(t, registrations.StatusPending, h.store.snapshot("r1").Status)
			assert.Zero(t, h.sender.count())
		})
	}
}

func TestHandleWebhookAcknowledgesUnusableEvents(t *testing.T) {
	noMetadata := paidSession("cs_x", "")
	noMetadata.Metadata = map[string]string{}

	tests := []struct {
		name    string
		event   payments.Event
		outcome WebhookOutcome
	}{
		{
			name:    "unrelated event type",
			event:   payments.Event{ID: "evt_a", Type: "invoice.paid"},
			outcome: OutcomeIgnored,
		},
		{
			name:    "missing registration id",
			event:   completedEvent("evt_b", noMetadata),
			outcome: OutcomeMissingReference,
		},
		{
			name:    "unknown registration",
			event:   completedEvent("evt_c", paidSession("cs_y", "ghost")),
			outcome: OutcomeUnknownReference,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(pendingRegistration("r1", "u1"))
			h.deliver(tt.event)

			res, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Nil(t, res.Err)
			assert.Equal(t, registrations.StatusPending, h.store.snapshot("r1").Status)
			assert.Zero(t, h.sender.count())
		})
	}
}

func TestHandleWebhookEmailFailureKeepsConfirmation(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	h.sender.err = errors.New("mail provider down")
	h.deliver(completedEvent("evt_1", paidSession("cs_r1", "r1")))

	res, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.False(t, res.Notified)
	reg := h.store.snapshot("r1")
	assert.Equal(t, registrations.StatusPaid, reg.Status)
	assert.NotEmpty(t, reg.VerificationCode())
}

func TestHandleWebhookCodeFailureStillConfirms(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	h.codes.err = errors.New("encoder broke")
	h.deliver(completedEvent("evt_1", paidSession("cs_r1", "r1")))

	res, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.False(t, res.Notified)
	reg := h.store.snapshot("r1")
	assert.Equal(t, registrations.StatusPaid, reg.Status)
	assert.Empty(t, reg.VerificationCode())
	assert.Zero(t, h.sender.count())
}

func TestHandleWebhookStoreFailureIsRetriable(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	h.store.markErr = errors.New("connection reset")
	h.deliver(completedEvent("evt_1", paidSession("cs_r1", "r1")))

	res, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
	assert.Error(t, h.events.finished["evt_1"])

	h.store.markErr = nil
	res, err = h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 1, h.sender.count())
}

func TestHandleWebhookRecordsProjectPayment(t *testing.T) {
	h := newHarness()
	s := payments.Session{
		ID:            "cs_p1",
		PaymentStatus: payments.PaymentStatusPaid,
		Metadata:      map[string]string{"project_id": "p1"},
	}
	h.deliver(completedEvent("evt_p", s))

	res, err := h.engine.HandleWebhook(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeProjectPaid, res.Outcome)
	assert.Equal(t, "cs_p1", h.projects.paid["p1"])
	assert.Zero(t, h.sender.count())
}

func TestConcurrentConfirmationsSendOneEmail(t *testing.T) {
	h := newHarness(pendingRegistration("r1", "u1"))
	session := paidSession("cs_r1", "r1")
	h.gateway.retrieveFn = func(string) (payments.Session, error) { return session, nil }

	var n int
	var mu sync.Mutex
	h.gateway.parseFn = func([]byte, string) (payments.Event, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return completedEvent(fmt.Sprintf("evt_%d", n), session), nil
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	downloads := make([]Ticket, 4)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.engine.HandleWebhook(ctx, nil, "sig")
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			tk, err := h.engine.DownloadTicket(ctx, "u1", "r1")
			assert.NoError(t, err)
			downloads[i] = tk
		}(i)
	}
	wg.Wait()

	reg := h.store.snapshot("r1")
	assert.Equal(t, registrations.StatusPaid, reg.Status)
	assert.LessOrEqual(t, h.sender.count(), 1)

	code := reg.VerificationCode()
	require.NotEmpty(t, code)
	for _, d := range downloads {
		assert.Equal(t, "concerto-billet-r1.pdf", d.Filename)
	}
	for _, d := range h.renderer.details {
		assert.Equal(t, code, d.VerificationCode)
	}
}
