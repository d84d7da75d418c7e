package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
)

// Registry creates messaging adapters from configuration and fans
// notifications out to them.
type Registry struct {
	logger      *slog.Logger
	deadLetters *DeadLetterStore

	mu       sync.RWMutex
	adapters []filteredAdapter
}

type filteredAdapter struct {
	messaging.MessageAdapter
	config messaging.AdapterConfig
}

// NewRegistry creates adapters from a MessagingConfig.
func NewRegistry(config *messaging.MessagingConfig, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	if err := r.Reload(config); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rebuilds the adapters from config. On error the current adapters
// stay in place.
func (r *Registry) Reload(config *messaging.MessagingConfig) error {
	adapters, err := buildAdapters(config, r.logger)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.adapters = adapters
	r.mu.Unlock()
	return nil
}

func buildAdapters(config *messaging.MessagingConfig, logger *slog.Logger) ([]filteredAdapter, error) {
	if config == nil {
		return nil, nil
	}
	var adapters []filteredAdapter
	for _, cfg := range config.Adapters {
		if !cfg.Enabled {
			continue
		}

		adapter, err := createAdapter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create adapter %q: %w", cfg.Name, err)
		}
		adapters = append(adapters, filteredAdapter{MessageAdapter: adapter, config: cfg})
	}
	return adapters, nil
}

// RecordFailures makes Notify append every failed delivery to store.
func (r *Registry) RecordFailures(store *DeadLetterStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadLetters = store
}

// Adapters returns all active adapters.
func (r *Registry) Adapters() []messaging.MessageAdapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]messaging.MessageAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.MessageAdapter)
	}
	return out
}

// Notify delivers n to every adapter whose level filter accepts it. All
// adapters are attempted; failures are joined.
func (r *Registry) Notify(ctx context.Context, n messaging.Notification) error {
	r.mu.RLock()
	adapters, store := r.adapters, r.deadLetters
	r.mu.RUnlock()

	var errs []error
	for _, a := range adapters {
		if !a.config.Accepts(n.Level) {
			continue
		}
		if err := a.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
			if store == nil {
				continue
			}
			fd := FailedDelivery{
				Adapter:      a.Name(),
				AdapterType:  a.Type(),
				Notification: n,
				Error:        err.Error(),
				FailedAt:     time.Now(),
			}
			if derr := store.Append(fd); derr != nil {
				r.logger.Warn("failed to record undelivered notification", "adapter", a.Name(), "error", derr)
			}
		}
	}
	return errors.Join(errs...)
}

func createAdapter(cfg messaging.AdapterConfig, logger *slog.Logger) (messaging.MessageAdapter, error) {
	switch cfg.Type {
	case "log":
		return NewLogAdapter(cfg, logger), nil
	case "webhook":
		if cfg.URL == "" {
			return nil, fmt.Errorf("webhook adapter requires a url")
		}
		return NewWebhookAdapter(cfg), nil
	case "slack":
		if cfg.URL == "" {
			return nil, fmt.Errorf("slack adapter requires a url")
		}
		return NewSlackAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}
