// Package statusapi is the HTTP client for the remote customer status API.
package statusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Client implements engagement.StatusRepository over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	readRetry  retry.Config
	logger     *slog.Logger
}

var _ engagement.StatusRepository = (*Client)(nil)

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      o.token,
		httpClient: o.httpClient,
		timeout:    o.timeout,
		readRetry: retry.Config{
			MaxAttempts:   o.readAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
		logger: o.logger,
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type createStatusRequest struct {
	Step   engagement.Step       `json:"step"`
	Status engagement.StatusType `json:"status"`
	Notes  string                `json:"notes,omitempty"`
}

type updateStatusRequest struct {
	Status engagement.StatusType `json:"status"`
	Notes  string                `json:"notes,omitempty"`
}

// ListStatuses fetches every status event recorded for a customer.
func (c *Client) ListStatuses(ctx context.Context, customerID string) ([]engagement.StatusEvent, error) {
	events, err := getJSON[[]engagement.StatusEvent](ctx, c, customerPath(customerID, "statuses"))
	if err != nil {
		return nil, fmt.Errorf("list statuses for %s: %w", customerID, err)
	}
	for i := range events {
		if events[i].CustomerID == "" {
			events[i].CustomerID = customerID
		}
	}
	return events, nil
}

// CreateStatus records a new status event for a step.
func (c *Client) CreateStatus(ctx context.Context, customerID string, step engagement.Step, status engagement.StatusType, notes string) (*engagement.StatusEvent, error) {
	body := createStatusRequest{Step: step, Status: status, Notes: notes}
	ev, err := sendJSON[engagement.StatusEvent](ctx, c, http.MethodPost, customerPath(customerID, "statuses"), body)
	if err != nil {
		return nil, fmt.Errorf("create %s status for %s: %w", step, customerID, err)
	}
	if ev.CustomerID == "" {
		ev.CustomerID = customerID
	}
	return &ev, nil
}

// UpdateStatus changes the status of an existing event.
func (c *Client) UpdateStatus(ctx context.Context, customerID, statusID string, status engagement.StatusType, notes string) (*engagement.StatusEvent, error) {
	body := updateStatusRequest{Status: status, Notes: notes}
	ev, err := sendJSON[engagement.StatusEvent](ctx, c, http.MethodPatch, customerPath(customerID, "statuses", statusID), body)
	if err != nil {
		return nil, fmt.Errorf("update status %s for %s: %w", statusID, customerID, err)
	}
	if ev.CustomerID == "" {
		ev.CustomerID = customerID
	}
	return &ev, nil
}

// AvailableSteps fetches the step label catalog.
func (c *Client) AvailableSteps(ctx context.Context) (engagement.Labels, error) {
	labels, err := getJSON[engagement.Labels](ctx, c, "/customers/statuses/available-steps")
	if err != nil {
		return nil, fmt.Errorf("available steps: %w", err)
	}
	return labels, nil
}

// AvailableStatuses fetches the status label catalog.
func (c *Client) AvailableStatuses(ctx context.Context) (map[engagement.StatusType]string, error) {
	labels, err := getJSON[map[engagement.StatusType]string](ctx, c, "/customers/statuses/available-statuses")
	if err != nil {
		return nil, fmt.Errorf("available statuses: %w", err)
	}
	return labels, nil
}

func customerPath(customerID string, parts ...string) string {
	segs := []string{"", "customers", url.PathEscape(customerID)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

// getJSON performs an idempotent GET, retried with backoff. Each attempt is
// bounded by the client timeout.
func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	r := retry.New[T](c.readRetry)
	t := timeout.New[T](timeout.Config{DefaultTimeout: c.timeout})
	return r.Do(ctx, func(ctx context.Context) (T, error) {
		return t.Execute(ctx, c.timeout, func(ctx context.Context) (T, error) {
			var env envelope[T]
			err := c.do(ctx, http.MethodGet, path, nil, &env)
			return env.Data, err
		})
	})
}

// sendJSON performs a single mutating request. Mutations are never retried.
func sendJSON[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	t := timeout.New[T](timeout.Config{DefaultTimeout: c.timeout})
	return t.Execute(ctx, c.timeout, func(ctx context.Context) (T, error) {
		var env envelope[T]
		err := c.do(ctx, method, path, body, &env)
		return env.Data, err
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("status api request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err)
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read body

	c.logger.Debug("status api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, method, path, requestID)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
