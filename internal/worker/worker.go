// Package worker processes background jobs from the Redis queue. The
// only job type today is notification email delivery over SMTP.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/evex-campus/backend/config"
	"github.com/evex-campus/backend/pkg/queue"
)

// Sender delivers one email. Split out so tests can run the worker loop
// without an SMTP server.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a plain-auth SMTP relay.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates an SMTP sender from config.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message. No-op with an error when SMTP is unconfigured.
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp host not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n",
		s.cfg.FromName, s.cfg.FromAddress, to, subject, body))
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, msg)
}

// Worker consumes the email queue.
type Worker struct {
	queue  *queue.Queue
	sender Sender
	logger *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, sender Sender, logger *zap.Logger) *Worker {
	return &Worker{queue: q, sender: sender, logger: logger}
}

// Run blocks processing jobs until ctx is cancelled. Failed jobs are
// retried with backoff and land in the DLQ after the retry budget.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("email worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("email worker stopping")
			return
		}
		job, _, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		if err := w.process(job); err != nil {
			w.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			if err := w.queue.Retry(ctx, job); err != nil {
				w.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

func (w *Worker) process(job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			// Malformed payloads are unrecoverable; drop instead of retrying.
			w.logger.Error("invalid email payload", zap.String("job_id", job.ID), zap.Error(err))
			return nil
		}
		if err := w.sender.Send(payload.RecipientEmail, payload.Subject, payload.Body); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		w.logger.Info("email sent",
			zap.String("job_id", job.ID),
			zap.String("type", payload.NotificationType),
			zap.String("to", payload.RecipientEmail))
		return nil
	default:
		w.logger.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}
}
