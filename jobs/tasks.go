package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pistigreen/pistigreen-backend/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"html_body,omitempty"`
}

// JobObserver records processed jobs.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// NewSendEmailHandler processes TaskTypeSendEmail tasks with the given sender.
func NewSendEmailHandler(sender mail.Sender, observer JobObserver, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			observe(observer, t.Type(), err)
			return fmt.Errorf("jobs: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
		err := sender.Send(ctx, mail.Message{
			To:       payload.To,
			Subject:  payload.Subject,
			Body:     payload.Body,
			HTMLBody: payload.HTMLBody,
		})
		observe(observer, t.Type(), err)
		if err != nil {
			logger.Warn("send email task", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		return nil
	}
}

func observe(observer JobObserver, task string, err error) {
	if observer != nil {
		observer.ObserveJob(task, err)
	}
}
