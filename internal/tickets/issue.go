package tickets

import (
	"context"
	"log/slog"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"
	"concerto-app/internal/infra/mailer"
	"concerto-app/internal/infra/ticketpdf"
)

// ensurePaid returns reg once it is known to be paid, asking the gateway
// about pending registrations and recording a confirmed payment.
func (e *Engine) ensurePaid(ctx context.Context, reg registrations.Registration) (registrations.Registration, error) {
	switch {
	case reg.IsPaid():
		return reg, nil
	case reg.IsCancelled():
		return reg, NewNotIssuableError("registration was cancelled")
	}

	if !reg.HasCheckoutSession() {
		return reg, NewNoCheckoutSessionError()
	}

	session, err := e.gateway.RetrieveSession(ctx, *reg.StripeCheckoutSessionID)
	if err != nil {
		return reg, NewGatewayFailureError("unable to verify payment status with the payment provider", err)
	}
	if !session.IsPaid() {
		return reg, NewPaymentNotConfirmedError()
	}

	log := e.logger.With("registration_id", reg.ID)
	won, err := e.store.MarkPaid(ctx, reg.ID, confirmationFrom(session, ""))
	switch {
	case err != nil:
		log.ErrorContext(ctx, "failed to record confirmed payment", "error", err)
	case won:
		log.InfoContext(ctx, "registration confirmed on demand")
	}

	if fresh, err := e.store.Get(ctx, reg.ID); err == nil {
		if fresh.IsCancelled() {
			return fresh, NewNotIssuableError("registration was cancelled")
		}
		if fresh.IsPaid() {
			return fresh, nil
		}
	}

	// the gateway is authoritative even when the write did not land
	reg.Status = registrations.StatusPaid
	if session.PaymentIntentID != "" {
		pi := session.PaymentIntentID
		reg.StripePaymentIntentID = &pi
	}
	return reg, nil
}

// ensureCode returns the persisted verification code of reg, generating and
// storing one when none exists yet. A persisted code is never replaced.
func (e *Engine) ensureCode(ctx context.Context, reg registrations.Registration) (string, error) {
	if code := reg.VerificationCode(); code != "" {
		return code, nil
	}

	code, err := e.codes.Generate(reg.ID)
	if err != nil {
		return "", NewCodeGenerationFailedError(err)
	}

	persisted, err := e.store.SaveVerificationCode(ctx, reg.ID, code)
	if err != nil {
		e.logger.WarnContext(ctx, "verification code not persisted", "registration_id", reg.ID, "error", err)
		return code, nil
	}
	if persisted != "" {
		return persisted, nil
	}
	return code, nil
}

func (e *Engine) render(reg registrations.Registration, code string) ([]byte, error) {
	pdf, err := e.renderer.Render(ticketpdf.Details{
		FirstName:        reg.FirstName,
		LastName:         reg.LastName,
		Email:            reg.Email,
		Amount:           reg.Amount,
		Currency:         reg.Currency,
		VerificationCode: code,
		RegistrationID:   reg.ID,
	})
	if err != nil {
		return nil, NewRenderFailedError(err)
	}
	return pdf, nil
}

// dispatch mails the ticket. Failures are logged and reported as false;
// they never undo the confirmation.
func (e *Engine) dispatch(ctx context.Context, log *slog.Logger, reg registrations.Registration, code string, pdf []byte) bool {
	err := e.sender.SendTicket(ctx, mailer.Ticket{
		To:               reg.Email,
		FirstName:        reg.FirstName,
		LastName:         reg.LastName,
		Email:            reg.Email,
		Amount:           reg.Amount,
		Currency:         reg.Currency,
		VerificationCode: code,
		RegistrationID:   reg.ID,
		PDF:              pdf,
		Filename:         ticketpdf.Filename(reg.ID),
	})
	if err != nil {
		log.ErrorContext(ctx, "ticket email failed", "error", err)
		return false
	}
	log.InfoContext(ctx, "ticket email sent")
	return true
}

// confirmationFrom maps a verified session onto a confirmation record.
func confirmationFrom(s payments.Session, code string) registrations.PaymentConfirmation {
	return registrations.PaymentConfirmation{
		CheckoutSessionID: s.ID,
		PaymentIntentID:   s.PaymentIntentID,
		VerificationCode:  code,
	}
}
