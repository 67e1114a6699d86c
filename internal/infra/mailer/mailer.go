package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"

	"concerto-app/internal/domain/concerts"
)

//go:embed templates
var templates embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templates, "templates/ticket.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templates, "templates/ticket.txt.tmpl"))
)

// Ticket is a confirmed registration ready to be mailed.
type Ticket struct {
	To               string
	FirstName        string
	LastName         string
	Email            string
	Amount           float64
	Currency         string
	VerificationCode string // PNG data URL
	RegistrationID   string
	PDF              []byte
	Filename         string
}

type Sender interface {
	SendTicket(ctx context.Context, t Ticket) error
}

func Subject(event concerts.Event) string {
	return "Ta place pour " + event.Title
}

type message struct {
	Subject string
	HTML    string
	Text    string
}

func compose(event concerts.Event, t Ticket) (message, error) {
	data := struct {
		FirstName      string
		LastName       string
		Email          string
		Amount         string
		RegistrationID string
		Code           htmltemplate.URL
		Event          concerts.Event
	}{
		FirstName:      t.FirstName,
		LastName:       t.LastName,
		Email:          t.Email,
		Amount:         concerts.FormatAmount(t.Amount, t.Currency),
		RegistrationID: t.RegistrationID,
		// data: URLs are filtered by html/template unless marked safe
		Code:  htmltemplate.URL(t.VerificationCode),
		Event: event,
	}

	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return message{}, fmt.Errorf("failed to execute email template: %w", err)
	}
	var text bytes.Buffer
	if err := textTemplate.Execute(&text, data); err != nil {
		return message{}, fmt.Errorf("failed to execute email template: %w", err)
	}

	return message{Subject: Subject(event), HTML: html.String(), Text: text.String()}, nil
}

// LogSender writes tickets to the log instead of mailing them. Used for
// local development.
type LogSender struct {
	logger *slog.Logger
	event  concerts.Event
}

func NewLogSender(logger *slog.Logger, event concerts.Event) *LogSender {
	return &LogSender{logger: logger, event: event}
}

func (s *LogSender) SendTicket(ctx context.Context, t Ticket) error {
	msg, err := compose(s.event, t)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "ticket email",
		"to", t.To,
		"subject", msg.Subject,
		"attachment", t.Filename,
		"attachment_bytes", len(t.PDF),
		"body", msg.Text,
	)
	return nil
}
