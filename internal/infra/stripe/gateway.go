package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"concerto-app/internal/domain/payments"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Gateway talks to Stripe hosted checkout with its own key; the global
// stripe.Key is never set.
type Gateway struct {
	sessions      *checkoutsession.Client
	webhookSecret string
}

func NewGateway(secretKey, webhookSecret string) *Gateway {
	return NewGatewayWithBackend(stripe.GetBackend(stripe.APIBackend), secretKey, webhookSecret)
}

func NewGatewayWithBackend(backend stripe.Backend, secretKey, webhookSecret string) *Gateway {
	return &Gateway{
		sessions:      &checkoutsession.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
	}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (payments.Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.ProductDescription),
					},
					UnitAmount: stripe.Int64(req.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if len(req.PaymentMetadata) > 0 {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.PaymentMetadata,
		}
	}

	cs, err := g.sessions.New(params)
	if err != nil {
		return payments.Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	if cs.URL == "" {
		return payments.Session{}, errors.New("create checkout session: stripe returned a session without redirect url")
	}
	return toSession(cs), nil
}

func (g *Gateway) RetrieveSession(ctx context.Context, sessionID string) (payments.Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return payments.Session{}, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}
	return toSession(cs), nil
}

// ParseWebhook verifies the signature header against the raw payload and
// decodes the event. Checkout session events carry the decoded session.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (payments.Event, error) {
	if signature == "" {
		return payments.Event{}, fmt.Errorf("%w: missing signature header", payments.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		if isSignatureError(err) {
			return payments.Event{}, fmt.Errorf("%w: %v", payments.ErrInvalidSignature, err)
		}
		return payments.Event{}, fmt.Errorf("%w: %v", payments.ErrMalformedEvent, err)
	}

	out := payments.Event{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return payments.Event{}, fmt.Errorf("%w: event %s has no data", payments.ErrMalformedEvent, event.ID)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return payments.Event{}, fmt.Errorf("%w: %v", payments.ErrMalformedEvent, err)
	}
	session := toSession(&cs)
	out.Session = &session
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}

// toSession flattens a checkout session. The payment intent arrives either
// as a bare id or as an expanded object; both decode into PaymentIntent.ID.
func toSession(cs *stripe.CheckoutSession) payments.Session {
	s := payments.Session{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: NormalizePaymentStatus(cs.PaymentStatus),
		Metadata:      cs.Metadata,
	}
	if cs.PaymentIntent != nil {
		s.PaymentIntentID = cs.PaymentIntent.ID
	}
	return s
}
