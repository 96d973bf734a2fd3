// Package notify renders OTP emails and hands them to an email.Sender.
package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"math"
	texttemplate "text/template"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/email"
	"github.com/ErlanBelekov/prompt-library/internal/metrics"
)

var (
	htmlBody = htmltemplate.Must(htmltemplate.New("otp.html").Parse(htmlTemplate))
	textBody = texttemplate.Must(texttemplate.New("otp.txt").Parse(textTemplate))
)

type templateData struct {
	AppName       string
	Action        string
	Code          string
	ExpiryMinutes int
}

type Mailer struct {
	sender  email.Sender
	appName string
	ttl     time.Duration
	logger  *slog.Logger
}

func NewMailer(sender email.Sender, appName string, ttl time.Duration, logger *slog.Logger) *Mailer {
	return &Mailer{
		sender:  sender,
		appName: appName,
		ttl:     ttl,
		logger:  logger.With("component", "notify"),
	}
}

// Send delivers code to addr and reports whether the provider accepted it.
// Failures are logged and counted; the caller decides what to tell the user.
func (m *Mailer) Send(ctx context.Context, addr, code string, purpose domain.Purpose) bool {
	msg, err := m.render(addr, code, purpose)
	if err != nil {
		m.logger.ErrorContext(ctx, "render otp email", "purpose", purpose, "error", err)
		metrics.OTPDeliveryFailuresTotal.WithLabelValues(purpose.String()).Inc()
		return false
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.ErrorContext(ctx, "send otp email", "purpose", purpose, "error", err)
		metrics.OTPDeliveryFailuresTotal.WithLabelValues(purpose.String()).Inc()
		return false
	}
	return true
}

func (m *Mailer) render(addr, code string, purpose domain.Purpose) (email.Message, error) {
	data := templateData{
		AppName:       m.appName,
		Action:        action(purpose),
		Code:          code,
		ExpiryMinutes: int(math.Ceil(m.ttl.Minutes())),
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return email.Message{}, fmt.Errorf("html body: %w", err)
	}
	if err := textBody.Execute(&text, data); err != nil {
		return email.Message{}, fmt.Errorf("text body: %w", err)
	}

	return email.Message{
		To:      addr,
		Subject: Subject(purpose, m.appName),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func Subject(purpose domain.Purpose, appName string) string {
	var s string
	switch purpose {
	case domain.PurposeSignup:
		s = "Verify Your Email"
	case domain.PurposeLogin:
		s = "Login Verification Code"
	case domain.PurposeReset:
		s = "Password Reset Code"
	default:
		s = "Verification Code"
	}
	return s + " - " + appName
}

func action(purpose domain.Purpose) string {
	switch purpose {
	case domain.PurposeSignup:
		return "complete your registration"
	case domain.PurposeLogin:
		return "log in to your account"
	case domain.PurposeReset:
		return "reset your password"
	default:
		return "verify your request"
	}
}
