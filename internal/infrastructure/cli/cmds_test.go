package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/config"
	"github.com/felixgeelhaar/leadline/internal/infrastructure/messaging"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	domainmsg "github.com/felixgeelhaar/leadline/pkg/domain/messaging"
)

func TestTimelineCommand(t *testing.T) {
	_, api := withProject(t)
	base := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	api.Seed("1042",
		engagement.StatusEvent{Step: engagement.StepInterestShown, Status: engagement.StatusCompleted, CreatedAt: base},
		engagement.StatusEvent{Step: engagement.StepFirstContact, Status: engagement.StatusStarted, Notes: "left voicemail", CreatedAt: base.Add(time.Hour)},
	)

	out, err := runCLI(t, "timeline", "1042")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	for _, want := range []string{"Customer 1042", "[x]", "[>]", "left voicemail", "50%", "Next step:", "(visit_scheduled)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "timeline", "1042", "--json")
	if err != nil {
		t.Fatalf("timeline --json: %v", err)
	}
	var tl engagement.Timeline
	if err := json.Unmarshal([]byte(out), &tl); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(tl.Entries) != 2 || tl.Progress != 50 || tl.NextStep != engagement.StepVisitScheduled {
		t.Errorf("unexpected timeline: %+v", tl)
	}
}

func TestTimelineHistoryCommand(t *testing.T) {
	_, api := withProject(t)
	api.Seed("1042",
		engagement.StatusEvent{Step: engagement.StepVisitScheduled, Status: engagement.StatusStarted},
		engagement.StatusEvent{Step: engagement.StepVisitScheduled, Status: engagement.StatusCompleted, Notes: "on site"},
	)

	out, err := runCLI(t, "timeline", "1042", "--history", "visit_scheduled")
	if err != nil {
		t.Fatalf("timeline --history: %v", err)
	}
	if !strings.Contains(out, "History of") || !strings.Contains(out, "on site") {
		t.Errorf("unexpected history output:\n%s", out)
	}
	if strings.Count(out, "st-") != 2 {
		t.Errorf("expected both events listed:\n%s", out)
	}
}

func TestStepCommands(t *testing.T) {
	_, api := withProject(t)

	out, err := runCLI(t, "start", "1042", "--notes", "inbound form")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, "Step interest_shown: pending -> current") {
		t.Errorf("unexpected start output:\n%s", out)
	}

	if _, err := runCLI(t, "complete", "1042", "interest_shown"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	events := api.Events("1042")
	if len(events) != 1 || events[0].Status != engagement.StatusCompleted || events[0].Notes != "inbound form" {
		t.Fatalf("expected one completed event keeping its notes, got %+v", events)
	}

	out, err = runCLI(t, "reopen", "1042", "interest_shown", "--json")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var res struct {
		Plan engagement.CommandPlan `json:"plan"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if res.Plan.From != engagement.StateCompleted || res.Plan.To != engagement.StatePending {
		t.Errorf("unexpected plan: %+v", res.Plan)
	}
}

func TestStepCommandRejected(t *testing.T) {
	_, api := withProject(t)
	api.Seed("1042", engagement.StatusEvent{Step: engagement.StepInterestShown, Status: engagement.StatusStarted})

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"out of order", []string{"start", "1042", "approval"}, "step cannot be started yet"},
		{"reopen current", []string{"reopen", "1042", "interest_shown"}, "transition not allowed"},
		{"complete absent", []string{"complete", "1042", "visit_scheduled"}, "step is not on the timeline"},
		{"unknown step", []string{"complete", "1042", "lunch"}, "unknown step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			var cliErr *CLIError
			if !errors.As(err, &cliErr) {
				t.Fatalf("expected CLIError, got %v", err)
			}
			if cliErr.Message != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, cliErr.Message)
			}
		})
	}

	if n := len(api.Events("1042")); n != 1 {
		t.Errorf("rejected commands must not write, got %d events", n)
	}
}

func TestStepCommandAPIFailure(t *testing.T) {
	_, api := withProject(t)
	api.Seed("1042", engagement.StatusEvent{Step: engagement.StepInterestShown, Status: engagement.StatusStarted})
	api.FailMutations = true

	_, err := runCLI(t, "complete", "1042", "interest_shown")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.Message != "status API request failed" {
		t.Fatalf("expected status API failure, got %v", err)
	}
}

func TestCatalogCommands(t *testing.T) {
	withProject(t)

	out, err := runCLI(t, "steps")
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	if !strings.HasPrefix(out, "1. interest_shown") || !strings.Contains(out, "7. contract_signature") {
		t.Errorf("unexpected steps output:\n%s", out)
	}

	out, err = runCLI(t, "statuses", "--json")
	if err != nil {
		t.Fatalf("statuses: %v", err)
	}
	var labels map[string]string
	if err := json.Unmarshal([]byte(out), &labels); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if labels["reopened"] != "Reopened" {
		t.Errorf("unexpected labels: %v", labels)
	}
}

func TestConfigCommands(t *testing.T) {
	root := t.TempDir()
	old := projectPath
	projectPath = root
	t.Cleanup(func() { projectPath = old })
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvAPIToken, "secret-token")

	if _, err := runCLI(t, "config", "init", "--api-url", "https://crm.example.com/api"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(config.Path(root)); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	_, err := runCLI(t, "config", "init")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected CLIError for existing config, got %v", err)
	}

	out, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "https://crm.example.com/api") {
		t.Errorf("expected base url in output:\n%s", out)
	}
	if strings.Contains(out, "secret-token") {
		t.Errorf("token must be redacted:\n%s", out)
	}
}

func TestCommandsRejectInvalidConfig(t *testing.T) {
	root := t.TempDir()
	old := projectPath
	projectPath = root
	t.Cleanup(func() { projectPath = old })
	t.Setenv(config.EnvAPIURL, "")

	if err := os.MkdirAll(filepath.Dir(config.Path(root)), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config.Path(root), []byte("cache:\n  ttl: -5s\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "timeline", "1042"); err == nil {
		t.Fatal("expected error for a negative cache ttl")
	}
}

func TestMCPCommandSkipsStart(t *testing.T) {
	withProject(t)
	t.Setenv("LEADLINE_SKIP_MCP_START", "true")

	if _, err := runCLI(t, "mcp", "--transport", "http"); err != nil {
		t.Fatalf("mcp: %v", err)
	}
}

func TestNotificationsCommand(t *testing.T) {
	root, _ := withProject(t)

	out, err := runCLI(t, "notifications")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if !strings.Contains(out, "No failed notifications") {
		t.Errorf("unexpected output:\n%s", out)
	}

	store := messaging.NewDeadLetterStore(config.FailedNotificationsPath(root))
	if err := store.Append(messaging.FailedDelivery{
		Adapter:      "ops",
		AdapterType:  "slack",
		Notification: domainmsg.Notification{Level: domainmsg.LevelError, Title: "Could not start Visit"},
		Error:        "slack returned status 500",
		FailedAt:     time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, "notifications")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if !strings.Contains(out, "Could not start Visit") || !strings.Contains(out, "slack returned status 500") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := runCLI(t, "notifications", "--clear"); err != nil {
		t.Fatalf("notifications --clear: %v", err)
	}
	if entries, _ := store.ReadAll(); len(entries) != 0 {
		t.Errorf("expected store cleared, got %d entries", len(entries))
	}
}
