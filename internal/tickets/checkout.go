package tickets

import (
	"context"
	"math"
	"net/url"
	"regexp"
	"strings"

	"concerto-app/internal/domain/concerts"
	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"
)

const minAmountMinor = 100

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type CheckoutInput struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Amount    float64 `json:"amount"`
	EventID   string  `json:"eventId"`
}

type CheckoutResult struct {
	Session      payments.Session
	Registration registrations.Registration
}

func (in CheckoutInput) normalize() (CheckoutInput, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.EventID = strings.TrimSpace(in.EventID)
	if in.EventID == "" {
		in.EventID = concerts.MainEventID
	}

	switch {
	case in.FirstName == "":
		return in, NewInvalidInputError("first name is required")
	case in.LastName == "":
		return in, NewInvalidInputError("last name is required")
	case !emailPattern.MatchString(in.Email):
		return in, NewInvalidInputError("invalid email address")
	case in.Phone == "":
		return in, NewInvalidInputError("phone number is required")
	}
	return in, validateAmount(in.Amount)
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return NewInvalidInputError("amount must be greater than 0")
	}
	if registrations.ToMinorUnits(amount) < minAmountMinor {
		return NewInvalidInputError("minimum amount is 1.00")
	}
	return nil
}

// StartCheckout creates a pending registration for actorID and opens a
// hosted checkout for it. The registration is removed again if the
// checkout cannot be opened.
func (e *Engine) StartCheckout(ctx context.Context, actorID string, in CheckoutInput) (CheckoutResult, error) {
	in, err := in.normalize()
	if err != nil {
		return CheckoutResult{}, err
	}

	reg := registrations.Registration{
		UserID:    actorID,
		EventID:   in.EventID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Amount:    in.Amount,
		Currency:  concerts.DefaultCurrency,
		Status:    registrations.StatusPending,
	}
	if err := e.store.Create(ctx, &reg); err != nil {
		return CheckoutResult{}, NewStoreFailureError("failed to save registration", err)
	}
	log := e.logger.With("registration_id", reg.ID)

	session, err := e.gateway.CreateCheckoutSession(ctx, e.checkoutRequest(reg))
	if err != nil {
		e.discard(ctx, reg.ID)
		return CheckoutResult{}, NewGatewayFailureError("failed to open checkout session", err)
	}

	if err := e.store.AttachCheckoutSession(ctx, reg.ID, session.ID); err != nil {
		e.discard(ctx, reg.ID)
		return CheckoutResult{}, NewStoreFailureError("failed to attach checkout session", err)
	}
	sessionID := session.ID
	reg.StripeCheckoutSessionID = &sessionID

	log.InfoContext(ctx, "checkout started", "session_id", session.ID)
	return CheckoutResult{Session: session, Registration: reg}, nil
}

// discard is the compensating delete for a registration whose checkout
// never opened.
func (e *Engine) discard(ctx context.Context, id string) {
	if err := e.store.Delete(ctx, id); err != nil {
		e.logger.ErrorContext(ctx, "failed to clean up registration", "registration_id", id, "error", err)
	}
}

// ResumePayment opens a new checkout for a registration still awaiting
// payment and makes it the registration's current session.
func (e *Engine) ResumePayment(ctx context.Context, actorID, id string) (payments.Session, error) {
	reg, err := e.loadOwned(ctx, actorID, id)
	if err != nil {
		return payments.Session{}, err
	}

	switch {
	case reg.IsPaid():
		return payments.Session{}, NewAlreadyConfirmedError("registration already confirmed")
	case reg.IsCancelled():
		return payments.Session{}, NewCancelledError("cannot resume a cancelled registration")
	}
	if err := validateAmount(reg.Amount); err != nil {
		return payments.Session{}, err
	}

	session, err := e.gateway.CreateCheckoutSession(ctx, e.checkoutRequest(reg))
	if err != nil {
		return payments.Session{}, NewGatewayFailureError("failed to open checkout session", err)
	}

	ok, err := e.store.RestartCheckout(ctx, reg.ID, session.ID)
	if err != nil {
		return payments.Session{}, NewStoreFailureError("failed to attach checkout session", err)
	}
	if !ok {
		return payments.Session{}, NewAlreadyConfirmedError("registration is no longer awaiting payment")
	}

	e.logger.InfoContext(ctx, "checkout resumed", "registration_id", reg.ID, "session_id", session.ID)
	return session, nil
}

func (e *Engine) checkoutRequest(reg registrations.Registration) payments.CheckoutRequest {
	event := concerts.Lookup(reg.EventID)
	currency := reg.Currency
	if currency == "" {
		currency = concerts.DefaultCurrency
	}

	return payments.CheckoutRequest{
		Currency:           currency,
		AmountMinor:        reg.AmountMinor(),
		ProductName:        "Participation — " + event.Title,
		ProductDescription: event.Venue + " · " + event.Date,
		CustomerEmail:      reg.Email,
		Metadata: map[string]string{
			"registration_id":   reg.ID,
			"event_id":          reg.EventID,
			"participant_email": reg.Email,
		},
		PaymentMetadata: map[string]string{
			"registration_id": reg.ID,
			"event_id":        reg.EventID,
		},
		SuccessURL: e.dashboardURL("confirmation", reg.ID),
		CancelURL:  e.dashboardURL("annule", reg.ID),
	}
}

func (e *Engine) dashboardURL(status, registrationID string) string {
	q := url.Values{}
	q.Set("statut", status)
	q.Set("inscription", registrationID)
	return e.origin + "/dashboard?" + q.Encode()
}
