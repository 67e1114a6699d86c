package mailer

import (
	"context"
	"errors"
	"fmt"

	"concerto-app/internal/domain/concerts"

	"github.com/resend/resend-go/v2"
)

type emailService interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender delivers tickets through the Resend API. Delivery is
// attempted once.
type ResendSender struct {
	emails emailService
	from   string
	event  concerts.Event
}

func NewResendSender(apiKey, from string, event concerts.Event) *ResendSender {
	return &ResendSender{emails: resend.NewClient(apiKey).Emails, from: from, event: event}
}

func (s *ResendSender) SendTicket(ctx context.Context, t Ticket) error {
	req, err := s.request(t)
	if err != nil {
		return err
	}
	if _, err := s.emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("send ticket email to %s: %w", t.To, err)
	}
	return nil
}

func (s *ResendSender) request(t Ticket) (*resend.SendEmailRequest, error) {
	if t.To == "" {
		return nil, errors.New("send ticket email: missing recipient")
	}
	msg, err := compose(s.event, t)
	if err != nil {
		return nil, err
	}

	return &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{t.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		Attachments: []*resend.Attachment{
			{Content: t.PDF, Filename: t.Filename},
		},
	}, nil
}
