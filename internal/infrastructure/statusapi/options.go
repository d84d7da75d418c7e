package statusapi

import (
	"log/slog"
	"net/http"
	"time"
)

type options struct {
	token        string
	timeout      time.Duration
	readAttempts int
	initialDelay time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		timeout:      15 * time.Second,
		readAttempts: 3,
		initialDelay: 250 * time.Millisecond,
	}
}

// Option configures the client.
type Option func(*options)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithReadRetry configures retry of GET requests.
func WithReadRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		o.readAttempts = maxAttempts
		o.initialDelay = initialDelay
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
