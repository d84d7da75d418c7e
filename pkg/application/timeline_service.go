package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
	"github.com/felixgeelhaar/leadline/pkg/storage"
)

// ErrCommandInFlight is returned when a command is issued for a customer
// that already has one pending.
var ErrCommandInFlight = errors.New("a command is already in flight for this customer")

// CommandResult is the outcome of a successful status command.
type CommandResult struct {
	Plan  engagement.CommandPlan  `json:"plan"`
	Event *engagement.StatusEvent `json:"event"`
	// Timeline is derived from a refetch after the mutation. It is nil when
	// the refetch failed and RefreshErr says why.
	Timeline   *engagement.Timeline `json:"timeline,omitempty"`
	RefreshErr error                `json:"-"`
}

// TimelineService derives customer timelines from the status API and issues
// the start, complete and reopen commands.
type TimelineService struct {
	repo     engagement.StatusRepository
	cache    *storage.QueryCache
	notifier messaging.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]bool

	labelsMu sync.Mutex
	labels   engagement.Labels
}

func NewTimelineService(repo engagement.StatusRepository, cache *storage.QueryCache, notifier messaging.Notifier, logger *slog.Logger) *TimelineService {
	if cache == nil {
		cache = storage.NewQueryCache(0)
	}
	if notifier == nil {
		notifier = messaging.Nop
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TimelineService{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]bool),
	}
}

// Events returns the customer's status events, from cache when fresh.
func (s *TimelineService) Events(ctx context.Context, customerID string) ([]engagement.StatusEvent, error) {
	if events, ok := s.cache.Get(customerID); ok {
		return events, nil
	}

	gen := s.cache.Begin(customerID)
	events, err := s.repo.ListStatuses(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !s.cache.Put(customerID, gen, events) {
		s.logger.Debug("discarded superseded fetch", "customer_id", customerID)
	}
	return events, nil
}

// Timeline returns the derived timeline for a customer.
func (s *TimelineService) Timeline(ctx context.Context, customerID string) (*engagement.Timeline, error) {
	events, err := s.Events(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	return engagement.NewTimeline(customerID, events, s.stepLabels(ctx)), nil
}

// Refresh drops the cached events and reloads the timeline.
func (s *TimelineService) Refresh(ctx context.Context, customerID string) (*engagement.Timeline, error) {
	s.cache.Invalidate(customerID)
	return s.Timeline(ctx, customerID)
}

// History returns every recorded event for one step of a customer.
func (s *TimelineService) History(ctx context.Context, customerID string, step engagement.Step) ([]engagement.StatusEvent, error) {
	events, err := s.Events(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return engagement.History(events, step), nil
}

// StepLabels returns the step label catalog from the API.
func (s *TimelineService) StepLabels(ctx context.Context) (engagement.Labels, error) {
	s.labelsMu.Lock()
	defer s.labelsMu.Unlock()
	if s.labels != nil {
		return s.labels, nil
	}
	labels, err := s.repo.AvailableSteps(ctx)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = engagement.Labels{}
	}
	s.labels = labels
	return labels, nil
}

// StatusLabels returns the status label catalog from the API.
func (s *TimelineService) StatusLabels(ctx context.Context) (map[engagement.StatusType]string, error) {
	return s.repo.AvailableStatuses(ctx)
}

// stepLabels never fails; the built-in names cover a missing catalog.
func (s *TimelineService) stepLabels(ctx context.Context) engagement.Labels {
	labels, err := s.StepLabels(ctx)
	if err != nil {
		s.logger.Warn("step labels unavailable, using built-in names", "error", err)
		return nil
	}
	return labels
}

// Start begins a step. The step must be the next candidate or a reopened one.
func (s *TimelineService) Start(ctx context.Context, customerID string, step engagement.Step, notes string) (*CommandResult, error) {
	return s.Execute(ctx, customerID, step, engagement.CommandStart, notes)
}

// StartNext begins the next step offered by the timeline.
func (s *TimelineService) StartNext(ctx context.Context, customerID, notes string) (*CommandResult, error) {
	tl, err := s.Timeline(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if tl.IsComplete() {
		return nil, engagement.ErrTimelineComplete
	}
	return s.Start(ctx, customerID, tl.NextStep, notes)
}

// Complete marks a current step as completed.
func (s *TimelineService) Complete(ctx context.Context, customerID string, step engagement.Step, notes string) (*CommandResult, error) {
	return s.Execute(ctx, customerID, step, engagement.CommandComplete, notes)
}

// Reopen moves a completed step back to pending.
func (s *TimelineService) Reopen(ctx context.Context, customerID string, step engagement.Step, notes string) (*CommandResult, error) {
	return s.Execute(ctx, customerID, step, engagement.CommandReopen, notes)
}

// Execute validates cmd against the current timeline, sends it to the API
// and, on success, invalidates the cache and refetches. Failed requests are
// reported through the notifier and never retried.
func (s *TimelineService) Execute(ctx context.Context, customerID string, step engagement.Step, cmd engagement.Command, notes string) (*CommandResult, error) {
	if !s.acquire(customerID) {
		return nil, ErrCommandInFlight
	}
	defer s.release(customerID)

	tl, err := s.Timeline(ctx, customerID)
	if err != nil {
		s.notify(ctx, messaging.LevelError, customerID, "Could not load timeline", err.Error(), nil)
		return nil, err
	}

	plan, err := engagement.PlanCommand(tl, step, cmd)
	if err != nil {
		s.notify(ctx, messaging.LevelWarning, customerID, "Action not allowed", err.Error(), map[string]string{
			"step":    string(step),
			"command": string(cmd),
		})
		return nil, err
	}

	var ev *engagement.StatusEvent
	if plan.Creates() {
		ev, err = s.repo.CreateStatus(ctx, customerID, plan.Step, plan.Status, notes)
	} else {
		ev, err = s.repo.UpdateStatus(ctx, customerID, plan.StatusID, plan.Status, notes)
	}
	if err != nil {
		s.logger.Error("status command failed",
			"customer_id", customerID,
			"step", step,
			"command", cmd,
			"error", err)
		s.notify(ctx, messaging.LevelError, customerID,
			fmt.Sprintf("Could not %s %s", cmd, tl.LabelOf(step)), err.Error(),
			map[string]string{"step": string(step), "command": string(cmd)})
		return nil, fmt.Errorf("%s %s: %w", cmd, step, err)
	}

	s.logger.Info("status command applied",
		"customer_id", customerID,
		"step", step,
		"command", cmd,
		"from", plan.From,
		"to", plan.To)
	s.notify(ctx, messaging.LevelInfo, customerID,
		fmt.Sprintf("%s %s", successVerb(cmd), tl.LabelOf(step)),
		fmt.Sprintf("%s is now %s", tl.LabelOf(step), plan.To),
		map[string]string{"step": string(step), "command": string(cmd)})

	result := &CommandResult{Plan: plan, Event: ev}
	result.Timeline, result.RefreshErr = s.Refresh(ctx, customerID)
	if result.RefreshErr != nil {
		s.logger.Warn("refetch after command failed", "customer_id", customerID, "error", result.RefreshErr)
	}
	return result, nil
}

func successVerb(cmd engagement.Command) string {
	switch cmd {
	case engagement.CommandStart:
		return "Started"
	case engagement.CommandComplete:
		return "Completed"
	case engagement.CommandReopen:
		return "Reopened"
	default:
		return string(cmd)
	}
}

func (s *TimelineService) acquire(customerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[customerID] {
		return false
	}
	s.inflight[customerID] = true
	return true
}

func (s *TimelineService) release(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, customerID)
}

func (s *TimelineService) notify(ctx context.Context, level messaging.Level, customerID, title, message string, fields map[string]string) {
	err := s.notifier.Notify(ctx, messaging.Notification{
		Level:      level,
		Title:      title,
		Message:    message,
		CustomerID: customerID,
		Fields:     fields,
		Timestamp:  s.now(),
	})
	if err != nil {
		s.logger.Warn("notification delivery failed", "title", title, "error", err)
	}
}
