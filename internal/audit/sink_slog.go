package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes audit events to the structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over the given logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(ctx context.Context, event Event) error {
	args := []any{
		"event", string(event.Type),
		"account_id", event.AccountID,
		"log_type", "audit",
	}
	for k, v := range event.Details {
		args = append(args, k, v)
	}
	s.logger.InfoContext(ctx, string(event.Type), args...)
	return nil
}
