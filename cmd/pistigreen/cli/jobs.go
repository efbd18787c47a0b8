package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/pistigreen/pistigreen-backend/internal/mail"
	"github.com/pistigreen/pistigreen-backend/jobs"
)

type queueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// JobsCLI wraps manual management helpers for the mail queue.
type JobsCLI struct {
	queue     mail.Enqueuer
	inspector queueInspector
	closers   []func() error
}

// NewJobsCLI initialises the CLI helpers using the provided Redis options.
func NewJobsCLI(redisOpts asynq.RedisClientOpt) *JobsCLI {
	client := jobs.NewClient(redisOpts)
	inspector := asynq.NewInspector(redisOpts)
	return &JobsCLI{
		queue:     client,
		inspector: inspector,
		closers:   []func() error{client.Close, inspector.Close},
	}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closeFn := range c.closers {
		if closeErr := closeFn(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// SendTestEmail queues a short message to verify mail delivery end to end.
func (c *JobsCLI) SendTestEmail(ctx context.Context, to string) error {
	if c == nil || c.queue == nil {
		return errors.New("jobs cli: queue not configured")
	}
	return c.queue.EnqueueEmail(ctx, mail.Message{
		To:      to,
		Subject: "Correo de prueba",
		Body:    "Si has recibido este mensaje, el envío de correo funciona.",
	})
}

// QueueStats prints counters for the default queue.
func (c *JobsCLI) QueueStats(w io.Writer) error {
	if c == nil || c.inspector == nil {
		return errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return fmt.Errorf("jobs cli: queue info: %w", err)
	}
	_, err = fmt.Fprintf(w, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d processed=%d failed=%d\n",
		info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived, info.Processed, info.Failed)
	return err
}
