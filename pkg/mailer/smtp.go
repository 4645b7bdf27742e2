package mailer

import (
	"context"

	"gopkg.in/gomail.v2"
)

// SMTP sends email through an SMTP relay with gomail.
type SMTP struct {
	dialer *gomail.Dialer
	From   string
}

func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{dialer: gomail.NewDialer(host, port, user, password), From: from}
}

func (s *SMTP) Send(ctx context.Context, to, subject, text, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	if html != "" {
		m.AddAlternative("text/html", html)
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
