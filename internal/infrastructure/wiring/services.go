package wiring

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/config"
	"github.com/felixgeelhaar/leadline/internal/infrastructure/messaging"
	"github.com/felixgeelhaar/leadline/internal/infrastructure/statusapi"
	"github.com/felixgeelhaar/leadline/pkg/application"
	"github.com/felixgeelhaar/leadline/pkg/storage"
)

const defaultRetryDelay = 250 * time.Millisecond

// AppServices exposes the application services wired from configuration.
type AppServices struct {
	Config   *config.Config
	Client   *statusapi.Client
	Cache    *storage.QueryCache
	Notifier *messaging.Registry
	Timeline *application.TimelineService
}

// BuildAppServices loads the config under root and wires the service graph.
func BuildAppServices(root string, logger *slog.Logger) (*AppServices, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	services, err := BuildFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	services.Notifier.RecordFailures(messaging.NewDeadLetterStore(config.FailedNotificationsPath(root)))
	return services, nil
}

// BuildFromConfig wires the service graph from an already loaded config.
func BuildFromConfig(cfg *config.Config, logger *slog.Logger) (*AppServices, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := messaging.NewRegistry(&cfg.Messaging, logger)
	if err != nil {
		return nil, fmt.Errorf("build notifiers: %w", err)
	}

	client := statusapi.NewClient(cfg.API.BaseURL,
		statusapi.WithToken(cfg.API.Token),
		statusapi.WithTimeout(cfg.API.Timeout),
		statusapi.WithReadRetry(cfg.API.ReadAttempts, defaultRetryDelay),
		statusapi.WithLogger(logger),
	)
	cache := storage.NewQueryCache(cfg.Cache.TTL)

	return &AppServices{
		Config:   cfg,
		Client:   client,
		Cache:    cache,
		Notifier: registry,
		Timeline: application.NewTimelineService(client, cache, registry, logger),
	}, nil
}
