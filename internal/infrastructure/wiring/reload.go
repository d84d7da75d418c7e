package wiring

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/config"
	"github.com/felixgeelhaar/leadline/internal/infrastructure/watch"
)

// WatchConfig reloads the notifier adapters whenever the config file under
// root changes. It blocks until ctx is cancelled. API settings are read once
// at startup and are not reloaded.
func (s *AppServices) WatchConfig(ctx context.Context, root string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	path := config.Path(root)
	w, err := watch.NewFileWatcher(path, 0, func() {
		cfg, err := config.Load(root)
		if err != nil {
			logger.Warn("config reload skipped", "path", path, "error", err)
			return
		}
		if err := s.Notifier.Reload(&cfg.Messaging); err != nil {
			logger.Warn("notifier reload failed", "path", path, "error", err)
			return
		}
		logger.Info("notifiers reloaded", "path", path, "adapters", len(s.Notifier.Adapters()))
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
