package mailer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/config"
)

// NewSenderFromConfig picks the delivery backend for MAIL_TRANSPORT. The
// queue transport delivers through Mailgun when it is configured and falls
// back to SMTP.
func NewSenderFromConfig(cfg *config.Config, logger *logrus.Logger) (Sender, error) {
	if !cfg.MailSendEnabled {
		return LogSender{Logger: logger}, nil
	}
	mailgunReady := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" && cfg.MailgunSender != ""
	smtpReady := cfg.SMTPHost != ""

	switch cfg.MailTransport {
	case "log":
		return LogSender{Logger: logger}, nil
	case "mailgun":
		if !mailgunReady {
			return nil, fmt.Errorf("mailgun not configured")
		}
		return NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), nil
	case "smtp":
		if !smtpReady {
			return nil, fmt.Errorf("smtp not configured")
		}
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom), nil
	case "queue":
		switch {
		case mailgunReady:
			return NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), nil
		case smtpReady:
			return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom), nil
		}
		return nil, fmt.Errorf("queue worker needs mailgun or smtp settings")
	}
	return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", cfg.MailTransport)
}
