// Package mail sends transactional email. Delivery is always
// fire-and-forget from the caller's perspective; a failed send is logged,
// never surfaced to the request that triggered it.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends one message
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers through a plain SMTP relay
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. net/smtp has no context support, so the
// caller's deadline only bounds the goroutine wrapping this call.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	message := buildMessage(m.cfg.From, to, subject, body)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message
func buildMessage(from, to, subject, body string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n"))
}

// NopMailer drops messages. Used when mail is not configured.
type NopMailer struct{}

// Send does nothing
func (NopMailer) Send(context.Context, string, string, string) error { return nil }
