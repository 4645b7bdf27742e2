package mailer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJob marks jobs the worker drops instead of requeueing.
var ErrInvalidJob = errors.New("invalid email job")

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template+Data or Subject with Text/HTML must be set; a template wins.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "verify_email", "welcome", "password_changed"
	Data     map[string]any `json:"data,omitempty"`
}

// EnsureRecipient fills Email/RecipientEmail in Data from To when missing.
func EnsureRecipient(job *EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// Validate checks that the job can be delivered.
func (j *EmailJob) Validate() error {
	if strings.TrimSpace(j.To) == "" {
		return fmt.Errorf("%w: empty recipient", ErrInvalidJob)
	}
	if j.Template == "" && j.Subject == "" {
		return fmt.Errorf("%w: neither template nor subject set", ErrInvalidJob)
	}
	return nil
}
