package notify

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message envelope and body.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail delivered to log", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
