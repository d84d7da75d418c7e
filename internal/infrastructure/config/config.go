package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
	"gopkg.in/yaml.v3"
)

const (
	// Dir is the per-workspace configuration directory.
	Dir        = ".leadline"
	configFile = "config.yaml"
	failedFile = "failed-notifications.jsonl"

	EnvAPIURL   = "LEADLINE_API_URL"
	EnvAPIToken = "LEADLINE_API_TOKEN"
)

// Config is the leadline client configuration.
type Config struct {
	API       APIConfig                 `yaml:"api"`
	Cache     CacheConfig               `yaml:"cache"`
	Messaging messaging.MessagingConfig `yaml:"messaging"`
}

// APIConfig points at the customer status API.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token,omitempty"`
	Timeout      time.Duration `yaml:"timeout"`
	ReadAttempts int           `yaml:"read_attempts"`
}

// CacheConfig controls the status event cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8080",
			Timeout:      15 * time.Second,
			ReadAttempts: 3,
		},
		Cache: CacheConfig{TTL: 30 * time.Second},
		Messaging: messaging.MessagingConfig{
			Adapters: []messaging.AdapterConfig{
				{Name: "console", Type: "log", Enabled: true},
			},
		},
	}
}

// Path returns the config file location under root.
func Path(root string) string {
	return filepath.Join(root, Dir, configFile)
}

// FailedNotificationsPath returns where undelivered notifications are kept.
func FailedNotificationsPath(root string) string {
	return filepath.Join(root, Dir, failedFile)
}

// Load reads the config under root, falling back to defaults when the file
// is missing, then applies environment overrides.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(root))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg under root.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := os.MkdirAll(filepath.Join(root, Dir), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(Path(root), data, 0600)
}

// Validate checks the fields the client cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (or set %s)", EnvAPIURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.API.Token = v
	}
}
