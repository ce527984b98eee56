package mailer

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

var ErrEmptyRecipient = errors.New("email job has no recipient")

// Render resolves the subject and bodies of job, rendering its template when set.
func Render(job EmailJob) (subject, text, html string, err error) {
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", errors.New("email job needs a template or a subject with text/html")
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	data := maps.Clone(job.Data)
	if data == nil {
		data = map[string]any{}
	}
	if v, ok := data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		data["Email"] = job.To
	}
	return mailtpl.Render(job.Template, data)
}

// Deliver renders job and hands it to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return ErrEmptyRecipient
	}
	subject, text, html, err := Render(job)
	if err != nil {
		return fmt.Errorf("render %s: %w", job.Template, err)
	}
	return s.Send(ctx, job.To, subject, text, html)
}

// LogSender writes messages to the log instead of sending them.
// Used when MAIL_SEND_ENABLED=false.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _, _ string) error {
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail sending disabled; email not sent")
	}
	return nil
}
