package notify

import (
	"context"
	"fmt"

	"gopkg.in/mail.v2"
)

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// Mail sends alerts as plain-text email.
type Mail struct {
	From    string
	Subject string
	dialer  Dialer
}

func NewMail(from, password, host string, port int) *Mail {
	if host == "" || from == "" {
		return nil
	}
	return &Mail{
		From:    from,
		Subject: "Uptime alert",
		dialer:  mail.NewDialer(host, port, from, password),
	}
}

func (m *Mail) Send(ctx context.Context, recipient, body string) error {
	if m == nil || m.dialer == nil {
		return ErrDisabled
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify.Mail.Send: %w", err)
	}
	return nil
}
