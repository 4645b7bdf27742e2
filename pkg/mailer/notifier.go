package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/config"
	mailtpl "github.com/oksasatya/fluxo-backend/pkg/mailer/templates"
)

// Recipient identifies who an account email goes to.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// Notifier turns account events into email jobs. Every method reports
// success as a bool and never retries; failures are logged here.
type Notifier struct {
	cfg        *config.Config
	dispatcher Dispatcher
	Logger     *logrus.Logger
}

func NewNotifier(cfg *config.Config, d Dispatcher, logger *logrus.Logger) *Notifier {
	return &Notifier{cfg: cfg, dispatcher: d, Logger: logger}
}

func (n *Notifier) SendVerification(ctx context.Context, r Recipient, code string, expiresAt time.Time) bool {
	return n.dispatch(ctx, r, EmailJob{
		To:       r.Email,
		Template: mailtpl.VerifyEmail,
		Data:     mailtpl.NewVerifyEmailData(n.cfg, r.Name, r.Email, code, expiresAt),
	})
}

func (n *Notifier) SendWelcome(ctx context.Context, r Recipient) bool {
	return n.dispatch(ctx, r, EmailJob{
		To:       r.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(n.cfg, r.Name, r.Email),
	})
}

func (n *Notifier) SendPasswordChanged(ctx context.Context, r Recipient, at time.Time) bool {
	return n.dispatch(ctx, r, EmailJob{
		To:       r.Email,
		Template: mailtpl.PasswordChanged,
		Data:     mailtpl.NewPasswordChangedData(n.cfg, r.Name, r.Email, at),
	})
}

func (n *Notifier) dispatch(ctx context.Context, r Recipient, job EmailJob) bool {
	if n == nil || n.dispatcher == nil {
		return false
	}
	if err := n.dispatcher.Dispatch(ctx, job); err != nil {
		if n.Logger != nil {
			n.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id":  r.UserID,
				"template": job.Template,
			}).Warn("email dispatch failed")
		}
		return false
	}
	return true
}
