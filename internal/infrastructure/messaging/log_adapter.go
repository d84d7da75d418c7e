package messaging

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
)

// LogAdapter writes notifications to a structured logger.
type LogAdapter struct {
	config messaging.AdapterConfig
	logger *slog.Logger
}

// NewLogAdapter creates a log adapter. A nil logger uses slog.Default().
func NewLogAdapter(config messaging.AdapterConfig, logger *slog.Logger) *LogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAdapter{config: config, logger: logger}
}

func (a *LogAdapter) Name() string { return a.config.Name }
func (a *LogAdapter) Type() string { return "log" }

func (a *LogAdapter) Notify(ctx context.Context, n messaging.Notification) error {
	attrs := []any{"title", n.Title}
	if n.CustomerID != "" {
		attrs = append(attrs, "customer_id", n.CustomerID)
	}
	for k, v := range n.Fields {
		attrs = append(attrs, k, v)
	}

	level := slog.LevelInfo
	switch n.Level {
	case messaging.LevelWarning:
		level = slog.LevelWarn
	case messaging.LevelError:
		level = slog.LevelError
	}
	a.logger.Log(ctx, level, n.Message, attrs...)
	return nil
}
