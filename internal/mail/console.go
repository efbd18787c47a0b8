package mail

import (
	"context"
	"log/slog"
)

// ConsoleSender logs messages instead of delivering them. Used in development.
type ConsoleSender struct {
	logger *slog.Logger
}

// NewConsoleSender constructs a ConsoleSender.
func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleSender{logger: logger}
}

// Send writes the message to the log.
func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

var _ Sender = (*ConsoleSender)(nil)
