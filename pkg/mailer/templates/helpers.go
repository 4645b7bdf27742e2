package templates

import (
	"time"

	"github.com/oksasatya/fluxo-backend/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		d.Time = t.UTC().Format("02 January 2006, 15:04 MST")
	}
}

func WithCode(code string) Option { return func(d *EmailData) { d.Code = code } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
		if mins := int(time.Until(utc).Round(time.Minute).Minutes()); mins > 0 {
			d.ExpiresInMin = mins
		}
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,

		LogoURL:    cfg.LogoURL,
		SupportURL: cfg.SupportURL,
		AppURL:     cfg.AppURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(cfg *config.Config, name, email, code string, expiresAt time.Time) map[string]any {
	d := NewBaseEmailData(cfg, VerifyEmail, name, email, WithCode(code), WithExpiresAt(expiresAt))
	return ToMap(d)
}

func NewWelcomeData(cfg *config.Config, name, email string) map[string]any {
	return ToMap(NewBaseEmailData(cfg, Welcome, name, email))
}

func NewPasswordChangedData(cfg *config.Config, name, email string, at time.Time) map[string]any {
	return ToMap(NewBaseEmailData(cfg, PasswordChanged, name, email, WithTime(at)))
}
