package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"concerto-app/internal/domain/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewGatewayWithBackend(backend, "sk_test_123", testWebhookSecret)
}

func TestCreateCheckoutSession(t *testing.T) {
	var form map[string]string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","payment_status":"unpaid"}`)
	})

	got, err := g.CreateCheckoutSession(context.Background(), payments.CheckoutRequest{
		Currency:           "EUR",
		AmountMinor:        2500,
		ProductName:        "Participation — Sous la voûte de l'Étoile",
		ProductDescription: "Temple de l'Étoile · Vendredi 16 janvier 2025",
		CustomerEmail:      "ana@example.com",
		Metadata:           map[string]string{"registration_id": "reg-1"},
		PaymentMetadata:    map[string]string{"registration_id": "reg-1"},
		SuccessURL:         "https://concerto.example/dashboard?statut=confirmation&inscription=reg-1",
		CancelURL:          "https://concerto.example/dashboard?statut=annule&inscription=reg-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", got.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", got.URL)
	assert.False(t, got.IsPaid())

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "eur", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "2500", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "1", form["line_items[0][quantity]"])
	assert.Equal(t, "reg-1", form["metadata[registration_id]"])
	assert.Equal(t, "reg-1", form["payment_intent_data[metadata][registration_id]"])
	assert.Equal(t, "ana@example.com", form["customer_email"])
}

func TestCreateCheckoutSessionWithoutURL(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_2","object":"checkout.session"}`)
	})

	_, err := g.CreateCheckoutSession(context.Background(), payments.CheckoutRequest{Currency: "EUR", AmountMinor: 100})
	assert.Error(t, err)
}

func TestRetrieveSession(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantPaid     bool
		wantIntentID string
	}{
		{
			name:         "intent as id",
			body:         `{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":"pi_123"}`,
			wantPaid:     true,
			wantIntentID: "pi_123",
		},
		{
			name:         "intent expanded",
			body:         `{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":{"id":"pi_456","object":"payment_intent"}}`,
			wantPaid:     true,
			wantIntentID: "pi_456",
		},
		{
			name: "unpaid",
			body: `{"id":"cs_1","object":"checkout.session","payment_status":"unpaid","payment_intent":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			})

			got, err := g.RetrieveSession(context.Background(), "cs_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, got.IsPaid())
			assert.Equal(t, tt.wantIntentID, got.PaymentIntentID)
		})
	}
}

func TestRetrieveSessionGatewayError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`)
	})

	_, err := g.RetrieveSession(context.Background(), "cs_missing")
	assert.Error(t, err)
}

func signedPayload(t *testing.T, body string) (payload []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(body),
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func TestParseWebhook(t *testing.T) {
	g := NewGateway("sk_test_123", testWebhookSecret)

	t.Run("checkout completed with string intent", func(t *testing.T) {
		payload, header := signedPayload(t, `{
			"id": "evt_1",
			"object": "event",
			"type": "checkout.session.completed",
			"data": {"object": {"id": "cs_1", "object": "checkout.session", "payment_status": "paid",
				"payment_intent": "pi_1", "metadata": {"registration_id": "reg-1"}}}
		}`)

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.True(t, ev.CompletesCheckout())
		require.NotNil(t, ev.Session)
		assert.Equal(t, "cs_1", ev.Session.ID)
		assert.Equal(t, "pi_1", ev.Session.PaymentIntentID)
		assert.Equal(t, "reg-1", ev.Session.Metadata["registration_id"])
	})

	t.Run("checkout completed with expanded intent", func(t *testing.T) {
		payload, header := signedPayload(t, `{
			"id": "evt_2",
			"object": "event",
			"type": "checkout.session.completed",
			"data": {"object": {"id": "cs_2", "object": "checkout.session",
				"payment_intent": {"id": "pi_2", "object": "payment_intent"}}}
		}`)

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "pi_2", ev.Session.PaymentIntentID)
	})

	t.Run("other event types carry no session", func(t *testing.T) {
		payload, header := signedPayload(t, `{"id": "evt_3", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`)

		ev, err := g.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Nil(t, ev.Session)
		assert.False(t, ev.CompletesCheckout())
	})

	t.Run("bad signature", func(t *testing.T) {
		payload, _ := signedPayload(t, `{"id": "evt_4", "object": "event", "type": "checkout.session.completed"}`)

		_, err := g.ParseWebhook(payload, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, payments.ErrInvalidSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := g.ParseWebhook([]byte(`{}`), "")
		assert.ErrorIs(t, err, payments.ErrInvalidSignature)
	})

	t.Run("signed garbage", func(t *testing.T) {
		payload, header := signedPayload(t, `not json`)

		_, err := g.ParseWebhook(payload, header)
		assert.ErrorIs(t, err, payments.ErrMalformedEvent)
	})
}

func TestNormalizePaymentStatus(t *testing.T) {
	assert.Equal(t, payments.PaymentStatusPaid, NormalizePaymentStatus(stripe.CheckoutSessionPaymentStatusPaid))
	assert.Equal(t, payments.PaymentStatusNoPaymentRequired, NormalizePaymentStatus("no_payment_required"))
	assert.Equal(t, payments.PaymentStatusUnpaid, NormalizePaymentStatus(""))
	assert.Equal(t, payments.PaymentStatusUnpaid, NormalizePaymentStatus("unpaid"))
}
