// Package mail sends the service's notification emails over SMTP. No
// delivery guarantees are made; callers treat failures as non-fatal.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"loadtracker.app/internal/obs"
)

// SendFunc matches smtp.SendMail so transports can be stubbed in tests.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Config holds SMTP connection settings.
type Config struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// SMTPMailer renders templates and hands them to an SMTP relay.
type SMTPMailer struct {
	cfg  Config
	send SendFunc
}

// New constructs an SMTPMailer. A nil send falls back to smtp.SendMail.
func New(cfg Config, send SendFunc) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("mail: smtp address is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail: from address is required")
	}
	if send == nil {
		send = smtp.SendMail
	}
	return &SMTPMailer{cfg: cfg, send: send}, nil
}

// SendWelcome emails a newly created user.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, fullName string) error {
	body, err := renderWelcome(fullName)
	if err != nil {
		return err
	}
	return m.deliver(ctx, "welcome", to, "Welcome to Truck Loading & Storage Tracker", body)
}

// SendPasswordReset emails a reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	body, err := renderPasswordReset(resetURL)
	if err != nil {
		return err
	}
	return m.deliver(ctx, "password_reset", to, "Reset your password", body)
}

func (m *SMTPMailer) deliver(ctx context.Context, template, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("mail: recipient is required")
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		host := m.cfg.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	if err := m.send(m.cfg.Addr, auth, m.cfg.From, []string{to}, msg.Bytes()); err != nil {
		obs.CountMail(template, "failure")
		return fmt.Errorf("mail: send %s: %w", template, err)
	}
	obs.CountMail(template, "success")
	return nil
}
