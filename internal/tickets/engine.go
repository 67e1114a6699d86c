// Package tickets reconciles payment confirmations with registrations and
// issues tickets. A registration moves from pending to paid exactly once;
// whoever performs that move owns the confirmation side effects.
package tickets

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"
	"concerto-app/internal/infra/mailer"
	"concerto-app/internal/infra/ticketpdf"
)

type Store interface {
	Get(ctx context.Context, id string) (registrations.Registration, error)
	Create(ctx context.Context, reg *registrations.Registration) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, userID string) ([]registrations.Registration, error)
	AttachCheckoutSession(ctx context.Context, id, sessionID string) error
	RestartCheckout(ctx context.Context, id, sessionID string) (bool, error)
	MarkPaid(ctx context.Context, id string, conf registrations.PaymentConfirmation) (bool, error)
	SaveVerificationCode(ctx context.Context, id, code string) (string, error)
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (payments.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (payments.Session, error)
	ParseWebhook(payload []byte, signature string) (payments.Event, error)
}

type CodeGenerator interface {
	Generate(registrationID string) (string, error)
}

type Renderer interface {
	Render(d ticketpdf.Details) ([]byte, error)
}

// EventLog deduplicates webhook deliveries.
type EventLog interface {
	Begin(ctx context.Context, eventID, eventType string) (bool, error)
	Finish(ctx context.Context, eventID string, procErr error) error
}

// ProjectPayments receives checkout completions that belong to portrait
// projects rather than registrations.
type ProjectPayments interface {
	MarkPaid(ctx context.Context, projectID, sessionID string) (bool, error)
}

type Deps struct {
	Store    Store
	Gateway  Gateway
	Codes    CodeGenerator
	Renderer Renderer
	Sender   mailer.Sender
	Events   EventLog
	Projects ProjectPayments
	// Origin is the public site origin used in checkout redirect URLs.
	Origin string
	Logger *slog.Logger
}

type Engine struct {
	store    Store
	gateway  Gateway
	codes    CodeGenerator
	renderer Renderer
	sender   mailer.Sender
	events   EventLog
	projects ProjectPayments
	origin   string
	logger   *slog.Logger
}

func NewEngine(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    d.Store,
		gateway:  d.Gateway,
		codes:    d.Codes,
		renderer: d.Renderer,
		sender:   d.Sender,
		events:   d.Events,
		projects: d.Projects,
		origin:   strings.TrimRight(d.Origin, "/"),
		logger:   logger,
	}
}

// loadOwned fetches a registration on behalf of actorID. Unknown ids and
// foreign registrations are reported differently.
func (e *Engine) loadOwned(ctx context.Context, actorID, id string) (registrations.Registration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return registrations.Registration{}, NewInvalidInputError("missing registration id")
	}

	reg, err := e.store.Get(ctx, id)
	if errors.Is(err, registrations.ErrNotFound) {
		return reg, NewNotFoundError(id, err)
	}
	if err != nil {
		return reg, NewStoreFailureError("failed to load registration", err)
	}
	if reg.UserID != actorID {
		return reg, NewForbiddenError(id)
	}
	return reg, nil
}

func (e *Engine) ListForOwner(ctx context.Context, actorID string) ([]registrations.Registration, error) {
	regs, err := e.store.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, NewStoreFailureError("failed to list registrations", err)
	}
	return regs, nil
}
