package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"
)

// Message is a plain-text notification email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a single message. Implementations are called from the
// dispatcher worker, never from request handlers.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through a plain-auth SMTP server.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers msg. The context is accepted for interface symmetry;
// net/smtp does not support cancellation mid-dial.
func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, []byte(b.String())); err != nil {
		return errors.Wrapf(err, "send mail to %s", msg.To)
	}
	return nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, Message) error { return nil }

// NopMailer returns a Mailer that silently accepts every message. Used when
// no SMTP server is configured.
func NopMailer() Mailer { return nopMailer{} }
