package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
)

// SlackAdapter sends notifications to a Slack incoming webhook URL.
type SlackAdapter struct {
	config messaging.AdapterConfig
	client *http.Client
}

// NewSlackAdapter creates a Slack adapter from config.
func NewSlackAdapter(config messaging.AdapterConfig) *SlackAdapter {
	return &SlackAdapter{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *SlackAdapter) Name() string { return a.config.Name }
func (a *SlackAdapter) Type() string { return "slack" }

func (a *SlackAdapter) Notify(ctx context.Context, n messaging.Notification) error {
	text := formatSlackMessage(n)

	payload := map[string]interface{}{
		"text": text,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	return nil
}

func formatSlackMessage(n messaging.Notification) string {
	icon := ":information_source:"
	switch n.Level {
	case messaging.LevelWarning:
		icon = ":warning:"
	case messaging.LevelError:
		icon = ":x:"
	}
	if n.CustomerID != "" {
		return fmt.Sprintf("%s *%s* (customer %s): %s", icon, n.Title, n.CustomerID, n.Message)
	}
	return fmt.Sprintf("%s *%s*: %s", icon, n.Title, n.Message)
}
