package mailer

import (
	"context"
	"fmt"

	mailtpl "github.com/oksasatya/fluxo-backend/pkg/mailer/templates"
)

// Dispatcher hands an email job to a transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, job EmailJob) error
}

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueDispatcher publishes jobs for cmd/email_worker.
type QueueDispatcher struct {
	Publisher Publisher
}

func (d QueueDispatcher) Dispatch(ctx context.Context, job EmailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	return d.Publisher.PublishJSON(ctx, job)
}

// DirectDispatcher renders the job and sends it in-process.
type DirectDispatcher struct {
	Sender Sender
}

func (d DirectDispatcher) Dispatch(ctx context.Context, job EmailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if !mailtpl.Known(job.Template) {
			return fmt.Errorf("%w: unknown template %q", ErrInvalidJob, job.Template)
		}
		EnsureRecipient(&job)
		var err error
		subject, text, html, err = mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrInvalidJob, job.Template, err)
		}
	}
	return d.Sender.Send(ctx, job.To, subject, text, html)
}
