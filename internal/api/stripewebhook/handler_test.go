package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/tickets"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeProcessor struct {
	res       tickets.WebhookResult
	err       error
	signature string
	payload   string
}

func (p *fakeProcessor) HandleWebhook(_ context.Context, payload []byte, signature string) (tickets.WebhookResult, error) {
	p.payload = string(payload)
	p.signature = signature
	return p.res, p.err
}

func serve(p Processor, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.POST("/webhook", h.StripeWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripeWebhook(t *testing.T) {
	tests := []struct {
		name   string
		res    tickets.WebhookResult
		err    error
		status int
	}{
		{name: "confirmed", res: tickets.WebhookResult{Outcome: tickets.OutcomeConfirmed}, status: http.StatusOK},
		{name: "unknown registration", res: tickets.WebhookResult{Outcome: tickets.OutcomeUnknownReference}, status: http.StatusOK},
		{
			name:   "processing failure is acknowledged",
			res:    tickets.WebhookResult{Outcome: tickets.OutcomeFailed, Err: errors.New("db down")},
			status: http.StatusOK,
		},
		{name: "bad signature", err: tickets.NewInvalidSignatureError(payments.ErrInvalidSignature), status: http.StatusBadRequest},
		{name: "malformed payload", err: tickets.NewInvalidPayloadError(payments.ErrMalformedEvent), status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{res: tt.res, err: tt.err}
			w := serve(p, `{"id":"evt_1"}`)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "t=1,v1=abc", p.signature)
			assert.Equal(t, `{"id":"evt_1"}`, p.payload)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"received":true}`, w.Body.String())
			}
		})
	}
}

func TestStripeWebhookRejectsOversizedBody(t *testing.T) {
	p := &fakeProcessor{}
	w := serve(p, strings.Repeat("x", maxPayloadBytes+1))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.payload)
}
