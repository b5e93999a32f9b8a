// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail delivers transactional email. Delivery is asynchronous:
// failures are logged, never surfaced to the HTTP caller.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 10 * time.Second

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
}

// Send delivers msg via SMTP. The context deadline is not enforced by
// net/smtp itself, so callers should keep sendTimeout short.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(s.Addr, nil, s.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
// Used in development when no SMTP relay is configured.
type LogSender struct{}

// Send logs the message body at INFO level.
func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("mail (log sender)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body)
	return nil
}

// Mailer composes and dispatches application email.
type Mailer struct {
	sender Sender
}

// NewMailer creates a Mailer backed by the given sender.
func NewMailer(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

// SendConfirmationCode dispatches a signup confirmation code to the user.
// Delivery runs in a separate goroutine; a failure is logged and the
// caller proceeds as if the mail was sent.
func (m *Mailer) SendConfirmationCode(email, username, code string) {
	msg := Message{
		To:      email,
		Subject: "Your confirmation code",
		Body: fmt.Sprintf("Hello %s,\n\nYour confirmation code is: %s\n\n"+
			"Use it together with your username to obtain an access token.\n", username, code),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := m.sender.Send(ctx, msg); err != nil {
			slog.Error("confirmation mail delivery failed", "to", email, "error", err)
			return
		}
		slog.Debug("confirmation mail sent", "to", email)
	}()
}
