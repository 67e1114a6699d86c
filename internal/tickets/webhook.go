package tickets

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"
)

type WebhookOutcome string

const (
	OutcomeIgnored          WebhookOutcome = "ignored"
	OutcomeDuplicate        WebhookOutcome = "duplicate"
	OutcomeMissingReference WebhookOutcome = "missing_reference"
	OutcomeUnknownReference WebhookOutcome = "unknown_reference"
	OutcomeAlreadySettled   WebhookOutcome = "already_settled"
	OutcomeConfirmed        WebhookOutcome = "confirmed"
	OutcomeProjectPaid      WebhookOutcome = "project_paid"
	OutcomeFailed           WebhookOutcome = "failed"
)

// WebhookResult describes what a verified webhook delivery did. Err is set
// when processing failed after verification; the delivery is still
// acknowledged.
type WebhookResult struct {
	EventID        string
	Outcome        WebhookOutcome
	RegistrationID string
	Notified       bool
	Err            error
}

// HandleWebhook verifies and processes a payment provider notification.
// It returns an error only when the delivery itself is not trustworthy.
func (e *Engine) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ev, err := e.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrMalformedEvent) {
			return WebhookResult{}, NewInvalidPayloadError(err)
		}
		return WebhookResult{}, NewInvalidSignatureError(err)
	}

	log := e.logger.With("event_id", ev.ID, "event_type", ev.Type)

	if e.events != nil {
		done, err := e.events.Begin(ctx, ev.ID, ev.Type)
		if err != nil {
			log.WarnContext(ctx, "webhook event not recorded", "error", err)
		} else if done {
			log.InfoContext(ctx, "webhook event already processed")
			return WebhookResult{EventID: ev.ID, Outcome: OutcomeDuplicate}, nil
		}
	}

	res := e.processEvent(ctx, log, ev)
	res.EventID = ev.ID

	if e.events != nil {
		if err := e.events.Finish(ctx, ev.ID, res.Err); err != nil {
			log.WarnContext(ctx, "webhook event not finalized", "error", err)
		}
	}
	return res, nil
}

func (e *Engine) processEvent(ctx context.Context, log *slog.Logger, ev payments.Event) WebhookResult {
	if !ev.CompletesCheckout() {
		log.DebugContext(ctx, "webhook event ignored")
		return WebhookResult{Outcome: OutcomeIgnored}
	}

	session := *ev.Session
	regID := strings.TrimSpace(session.Metadata["registration_id"])
	if regID == "" {
		if projectID := strings.TrimSpace(session.Metadata["project_id"]); projectID != "" && e.projects != nil {
			return e.confirmProject(ctx, log, projectID, session.ID)
		}
		log.WarnContext(ctx, "checkout completed without registration_id metadata", "session_id", session.ID)
		return WebhookResult{Outcome: OutcomeMissingReference}
	}
	log = log.With("registration_id", regID)

	reg, err := e.store.Get(ctx, regID)
	if errors.Is(err, registrations.ErrNotFound) {
		log.WarnContext(ctx, "checkout completed for unknown registration")
		return WebhookResult{Outcome: OutcomeUnknownReference, RegistrationID: regID}
	}
	if err != nil {
		log.ErrorContext(ctx, "failed to load registration", "error", err)
		return WebhookResult{Outcome: OutcomeFailed, RegistrationID: regID, Err: err}
	}

	code, err := e.codes.Generate(reg.ID)
	if err != nil {
		log.ErrorContext(ctx, "verification code generation failed", "error", err)
		code = ""
	}

	won, err := e.store.MarkPaid(ctx, reg.ID, confirmationFrom(session, code))
	if err != nil {
		log.ErrorContext(ctx, "failed to record payment", "error", err)
		return WebhookResult{Outcome: OutcomeFailed, RegistrationID: reg.ID, Err: err}
	}
	if !won {
		log.InfoContext(ctx, "registration already settled, skipping confirmation", "status", reg.Status)
		return WebhookResult{Outcome: OutcomeAlreadySettled, RegistrationID: reg.ID}
	}
	log.InfoContext(ctx, "registration confirmed")

	res := WebhookResult{Outcome: OutcomeConfirmed, RegistrationID: reg.ID}

	paid, err := e.store.Get(ctx, reg.ID)
	if err != nil {
		log.WarnContext(ctx, "failed to reload confirmed registration", "error", err)
		paid = reg
		paid.Status = registrations.StatusPaid
		if code != "" {
			paid.QRCodeDataURL = &code
		}
	}

	persistedCode := paid.VerificationCode()
	switch {
	case persistedCode == "":
		log.WarnContext(ctx, "no verification code, ticket email skipped")
		return res
	case paid.Email == "":
		log.WarnContext(ctx, "no contact email, ticket email skipped")
		return res
	}

	pdf, err := e.render(paid, persistedCode)
	if err != nil {
		log.ErrorContext(ctx, "ticket rendering failed, email skipped", "error", err)
		return res
	}
	res.Notified = e.dispatch(ctx, log, paid, persistedCode, pdf)
	return res
}

func (e *Engine) confirmProject(ctx context.Context, log *slog.Logger, projectID, sessionID string) WebhookResult {
	log = log.With("project_id", projectID)
	won, err := e.projects.MarkPaid(ctx, projectID, sessionID)
	if err != nil {
		log.ErrorContext(ctx, "failed to record project payment", "error", err)
		return WebhookResult{Outcome: OutcomeFailed, Err: err}
	}
	if !won {
		log.InfoContext(ctx, "project payment already recorded")
		return WebhookResult{Outcome: OutcomeAlreadySettled}
	}
	log.InfoContext(ctx, "project payment recorded")
	return WebhookResult{Outcome: OutcomeProjectPaid}
}
