package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is a single outbound email. Text is the plain-text alternative of HTML.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs emails instead of sending them. Only allowed with ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email (local dev)", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

type Options struct {
	Driver       string // log, resend or smtp
	From         string
	ResendAPIKey string
	SMTP         SMTPConfig
}

// NewSender picks the implementation named by opts.Driver.
func NewSender(opts Options, logger *slog.Logger) (Sender, error) {
	switch opts.Driver {
	case "log":
		return NewLogSender(logger), nil
	case "resend":
		return NewResendSender(opts.ResendAPIKey, opts.From), nil
	case "smtp":
		cfg := opts.SMTP
		cfg.From = opts.From
		return NewSMTPSender(cfg)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", opts.Driver)
	}
}
