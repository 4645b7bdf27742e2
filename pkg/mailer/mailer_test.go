package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/fluxo-backend/config"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	mailtpl "github.com/oksasatya/fluxo-backend/pkg/mailer/templates"
)

type captureSender struct {
	to, subject, text string
	err               error
}

func (s *captureSender) Send(_ context.Context, to, subject, text, _ string) error {
	s.to, s.subject, s.text = to, subject, text
	return s.err
}

type capturePublisher struct {
	jobs []any
}

func (p *capturePublisher) PublishJSON(_ context.Context, body any) error {
	p.jobs = append(p.jobs, body)
	return nil
}

func TestDirectDispatcherRendersTemplate(t *testing.T) {
	s := &captureSender{}
	d := DirectDispatcher{Sender: s}
	cfg := &config.Config{CompanyName: "Fluxo"}

	err := d.Dispatch(context.Background(), EmailJob{
		To:       "ann@example.com",
		Template: mailtpl.VerifyEmail,
		Data:     mailtpl.NewVerifyEmailData(cfg, "Ann", "ann@example.com", "123456", time.Now().Add(time.Minute)),
	})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", s.to)
	assert.Contains(t, s.text, "123456")
}

func TestDirectDispatcherRawMessage(t *testing.T) {
	s := &captureSender{}
	err := DirectDispatcher{Sender: s}.Dispatch(context.Background(), EmailJob{To: "a@b.co", Subject: "hi", Text: "body"})
	require.NoError(t, err)
	assert.Equal(t, "hi", s.subject)
	assert.Equal(t, "body", s.text)
}

func TestInvalidJobs(t *testing.T) {
	d := DirectDispatcher{Sender: &captureSender{}}
	cases := []EmailJob{
		{Subject: "no recipient"},
		{To: "a@b.co"},
		{To: "a@b.co", Template: "universal"},
	}
	for _, job := range cases {
		assert.ErrorIs(t, d.Dispatch(context.Background(), job), ErrInvalidJob, "%+v", job)
	}

	transport := errors.New("connection refused")
	err := DirectDispatcher{Sender: &captureSender{err: transport}}.Dispatch(context.Background(), EmailJob{To: "a@b.co", Subject: "x"})
	assert.ErrorIs(t, err, transport)
	assert.NotErrorIs(t, err, ErrInvalidJob)
}

func TestQueueDispatcherPublishes(t *testing.T) {
	p := &capturePublisher{}
	d := QueueDispatcher{Publisher: p}
	require.NoError(t, d.Dispatch(context.Background(), EmailJob{To: "a@b.co", Template: mailtpl.Welcome}))
	require.Len(t, p.jobs, 1)
	assert.Equal(t, "a@b.co", p.jobs[0].(EmailJob).To)

	assert.ErrorIs(t, d.Dispatch(context.Background(), EmailJob{}), ErrInvalidJob)
	assert.Len(t, p.jobs, 1)
}

func TestNotifierReportsOutcome(t *testing.T) {
	cfg := &config.Config{CompanyName: "Fluxo"}
	r := Recipient{UserID: "u1", Email: "ann@example.com", Name: "Ann"}

	ok := NewNotifier(cfg, DirectDispatcher{Sender: &captureSender{}}, helpers.NewNopLogger())
	assert.True(t, ok.SendVerification(context.Background(), r, "123456", time.Now().Add(time.Minute)))
	assert.True(t, ok.SendWelcome(context.Background(), r))
	assert.True(t, ok.SendPasswordChanged(context.Background(), r, time.Now()))

	failing := NewNotifier(cfg, DirectDispatcher{Sender: &captureSender{err: errors.New("down")}}, helpers.NewNopLogger())
	assert.False(t, failing.SendWelcome(context.Background(), r))

	var none *Notifier
	assert.False(t, none.SendWelcome(context.Background(), r))
}

func TestEnsureRecipient(t *testing.T) {
	job := EmailJob{To: "a@b.co", Data: map[string]any{"Email": ""}}
	EnsureRecipient(&job)
	assert.Equal(t, "a@b.co", job.Data["Email"])
	assert.Equal(t, "a@b.co", job.Data["RecipientEmail"])
}

func TestNewSenderFromConfig(t *testing.T) {
	logger := helpers.NewNopLogger()

	s, err := NewSenderFromConfig(&config.Config{MailSendEnabled: false, MailTransport: "smtp"}, logger)
	require.NoError(t, err)
	assert.IsType(t, LogSender{}, s)

	s, err = NewSenderFromConfig(&config.Config{MailSendEnabled: true, MailTransport: "smtp", SMTPHost: "localhost", SMTPPort: 25}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTP{}, s)

	s, err = NewSenderFromConfig(&config.Config{MailSendEnabled: true, MailTransport: "queue",
		MailgunDomain: "mg.example.com", MailgunAPIKey: "key", MailgunSender: "no-reply@example.com"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &Mailgun{}, s)

	_, err = NewSenderFromConfig(&config.Config{MailSendEnabled: true, MailTransport: "mailgun"}, logger)
	assert.Error(t, err)

	_, err = NewSenderFromConfig(&config.Config{MailSendEnabled: true, MailTransport: "pigeon"}, logger)
	assert.Error(t, err)
}
