package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// LogSender writes emails to the log instead of delivering them.
// Used when MAIL_SEND_ENABLED=false or MAIL_TRANSPORT=log.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, text, _ string) error {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email (log transport)\n" + text)
	}
	return nil
}
