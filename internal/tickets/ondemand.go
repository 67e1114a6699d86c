package tickets

import (
	"context"

	"concerto-app/internal/infra/ticketpdf"
)

type SendResult struct {
	Sent      bool `json:"sent"`
	CodeReady bool `json:"codeReady"`
}

type Ticket struct {
	Filename string
	PDF      []byte
}

// SendTicket confirms the registration if needed and mails the ticket to
// its contact address. A failed delivery is reported through Sent, not as
// an error.
func (e *Engine) SendTicket(ctx context.Context, actorID, id string) (SendResult, error) {
	reg, err := e.loadOwned(ctx, actorID, id)
	if err != nil {
		return SendResult{}, err
	}
	if reg.Email == "" {
		return SendResult{}, NewMissingEmailError()
	}

	reg, err = e.ensurePaid(ctx, reg)
	if err != nil {
		return SendResult{}, err
	}
	code, err := e.ensureCode(ctx, reg)
	if err != nil {
		return SendResult{}, err
	}
	pdf, err := e.render(reg, code)
	if err != nil {
		return SendResult{CodeReady: true}, err
	}

	log := e.logger.With("registration_id", reg.ID)
	sent := e.dispatch(ctx, log, reg, code, pdf)
	return SendResult{Sent: sent, CodeReady: true}, nil
}

// DownloadTicket confirms the registration if needed and returns the
// rendered ticket document.
func (e *Engine) DownloadTicket(ctx context.Context, actorID, id string) (Ticket, error) {
	reg, err := e.loadOwned(ctx, actorID, id)
	if err != nil {
		return Ticket{}, err
	}

	reg, err = e.ensurePaid(ctx, reg)
	if err != nil {
		return Ticket{}, err
	}
	code, err := e.ensureCode(ctx, reg)
	if err != nil {
		return Ticket{}, err
	}
	pdf, err := e.render(reg, code)
	if err != nil {
		return Ticket{}, err
	}
	return Ticket{Filename: ticketpdf.Filename(reg.ID), PDF: pdf}, nil
}
