// Package messaging defines the notifier port and the pluggable adapter
// configuration used to deliver user-facing feedback.
package messaging

import (
	"context"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single piece of feedback about a command outcome.
type Notification struct {
	Level      Level             `json:"level"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	CustomerID string            `json:"customer_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Notifier delivers notifications. Delivery failures are reported to the
// caller and never retried.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MessageAdapter is a named Notifier built from configuration.
type MessageAdapter interface {
	Notifier
	Name() string
	Type() string
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop discards every notification.
var Nop Notifier = NotifierFunc(func(context.Context, Notification) error { return nil })

// AdapterConfig defines configuration for a messaging adapter.
type AdapterConfig struct {
	Name         string            `yaml:"name" json:"name"`
	Type         string            `yaml:"type" json:"type"` // "log", "webhook", "slack"
	URL          string            `yaml:"url,omitempty" json:"url,omitempty"`
	LevelFilters []Level           `yaml:"level_filters,omitempty" json:"level_filters,omitempty"`
	Enabled      bool              `yaml:"enabled" json:"enabled"`
	Options      map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Accepts returns true if the adapter should receive notifications of the
// given level. An empty filter accepts everything.
func (c AdapterConfig) Accepts(level Level) bool {
	if len(c.LevelFilters) == 0 {
		return true
	}
	for _, l := range c.LevelFilters {
		if l == level {
			return true
		}
	}
	return false
}

// MessagingConfig holds all configured messaging adapters.
type MessagingConfig struct {
	Adapters []AdapterConfig `yaml:"adapters" json:"adapters"`
}
