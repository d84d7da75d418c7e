package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/application"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/felixgeelhaar/leadline/pkg/domain/messaging"
	"github.com/felixgeelhaar/leadline/pkg/storage"
)

type MockStatusRepo struct {
	mu        sync.Mutex
	events    map[string][]engagement.StatusEvent
	seq       int
	clock     time.Time
	lists     int
	creates   int
	updates   int
	ListErr   error
	MutateErr error
	StepsErr  error
	block     chan struct{}
	entered   chan struct{}
}

func NewMockStatusRepo() *MockStatusRepo {
	return &MockStatusRepo{
		events: make(map[string][]engagement.StatusEvent),
		clock:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *MockStatusRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *MockStatusRepo) ListStatuses(ctx context.Context, customerID string) ([]engagement.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]engagement.StatusEvent, len(m.events[customerID]))
	copy(out, m.events[customerID])
	return out, nil
}

func (m *MockStatusRepo) CreateStatus(ctx context.Context, customerID string, step engagement.Step, status engagement.StatusType, notes string) (*engagement.StatusEvent, error) {
	if m.block != nil {
		close(m.entered)
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.MutateErr != nil {
		return nil, m.MutateErr
	}
	m.seq++
	ev := engagement.StatusEvent{
		ID:         fmt.Sprintf("s%d", m.seq),
		CustomerID: customerID,
		Step:       step,
		Status:     status,
		Notes:      notes,
		CreatedAt:  m.tick(),
	}
	m.events[customerID] = append(m.events[customerID], ev)
	return &ev, nil
}

func (m *MockStatusRepo) UpdateStatus(ctx context.Context, customerID, statusID string, status engagement.StatusType, notes string) (*engagement.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.MutateErr != nil {
		return nil, m.MutateErr
	}
	for i, ev := range m.events[customerID] {
		if ev.ID == statusID {
			ev.Status = status
			ev.Notes = notes
			m.events[customerID][i] = ev
			return &ev, nil
		}
	}
	return nil, fmt.Errorf("status %s not found", statusID)
}

func (m *MockStatusRepo) AvailableSteps(ctx context.Context) (engagement.Labels, error) {
	if m.StepsErr != nil {
		return nil, m.StepsErr
	}
	return engagement.Labels{engagement.StepInterestShown: "Interesse"}, nil
}

func (m *MockStatusRepo) AvailableStatuses(ctx context.Context) (map[engagement.StatusType]string, error) {
	return map[engagement.StatusType]string{engagement.StatusStarted: "Iniciado"}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []messaging.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n messaging.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) last() messaging.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return messaging.Notification{}
	}
	return r.notes[len(r.notes)-1]
}

func newService(repo *MockStatusRepo) (*application.TimelineService, *recordingNotifier) {
	n := &recordingNotifier{}
	return application.NewTimelineService(repo, storage.NewQueryCache(0), n, nil), n
}

func TestTimelineService_FullLifecycle(t *testing.T) {
	repo := NewMockStatusRepo()
	svc, notes := newService(repo)
	ctx := context.Background()

	res, err := svc.StartNext(ctx, "c1", "walk-in")
	if err != nil {
		t.Fatalf("start next: %v", err)
	}
	if res.Timeline == nil || res.Timeline.StateOf(engagement.StepInterestShown) != engagement.StateCurrent {
		t.Fatalf("expected interest_shown current, got %+v", res.Timeline)
	}
	if res.Timeline.NextStep != engagement.StepFirstContact {
		t.Errorf("expected next first_contact, got %s", res.Timeline.NextStep)
	}
	if notes.last().Level != messaging.LevelInfo || notes.last().Title != "Started Interesse" {
		t.Errorf("unexpected notification %+v", notes.last())
	}

	res, err = svc.Complete(ctx, "c1", engagement.StepInterestShown, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Timeline.Progress != 100 {
		t.Errorf("expected progress 100, got %d", res.Timeline.Progress)
	}
	if repo.updates != 1 {
		t.Errorf("expected complete to patch the existing event, got %d updates", repo.updates)
	}

	res, err = svc.Reopen(ctx, "c1", engagement.StepInterestShown, "client came back")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if res.Timeline.StateOf(engagement.StepInterestShown) != engagement.StatePending {
		t.Errorf("expected pending after reopen")
	}
	if res.Timeline.Progress != 0 {
		t.Errorf("expected progress 0, got %d", res.Timeline.Progress)
	}
}

func TestTimelineService_RejectsIllegalTransitionsWithoutCallingAPI(t *testing.T) {
	repo := NewMockStatusRepo()
	svc, notes := newService(repo)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "c1", engagement.StepInterestShown, ""); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := svc.Reopen(ctx, "c1", engagement.StepInterestShown, "")
	var transErr *engagement.TransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if notes.last().Level != messaging.LevelWarning {
		t.Errorf("expected warning notification, got %+v", notes.last())
	}

	_, err = svc.Start(ctx, "c1", engagement.StepApproval, "")
	if !errors.Is(err, engagement.ErrStepNotNext) {
		t.Fatalf("expected ErrStepNotNext, got %v", err)
	}
	if repo.creates != 1 || repo.updates != 0 {
		t.Errorf("rejected commands must not reach the API: creates=%d updates=%d", repo.creates, repo.updates)
	}
}

func TestTimelineService_MutationFailureNotifiesAndKeepsCache(t *testing.T) {
	repo := NewMockStatusRepo()
	svc, notes := newService(repo)
	ctx := context.Background()

	if _, err := svc.Timeline(ctx, "c1"); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	listsBefore := repo.lists

	repo.MutateErr = errors.New("connection reset")
	_, err := svc.Start(ctx, "c1", engagement.StepInterestShown, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if notes.last().Level != messaging.LevelError {
		t.Errorf("expected error notification, got %+v", notes.last())
	}
	if repo.creates != 1 {
		t.Errorf("expected a single attempt, got %d", repo.creates)
	}
	if repo.lists != listsBefore {
		t.Errorf("failed command must not refetch")
	}
}

func TestTimelineService_UsesCacheUntilInvalidated(t *testing.T) {
	repo := NewMockStatusRepo()
	svc, _ := newService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Timeline(ctx, "c1"); err != nil {
			t.Fatalf("timeline: %v", err)
		}
	}
	if repo.lists != 1 {
		t.Errorf("expected one fetch, got %d", repo.lists)
	}

	if _, err := svc.Refresh(ctx, "c1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if repo.lists != 2 {
		t.Errorf("expected refresh to refetch, got %d", repo.lists)
	}
}

func TestTimelineService_LabelsFallBack(t *testing.T) {
	repo := NewMockStatusRepo()
	repo.StepsErr = errors.New("catalog down")
	svc, _ := newService(repo)

	res, err := svc.StartNext(context.Background(), "c1", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Timeline.Entries[0].Label != "Interest Shown" {
		t.Errorf("expected built-in label, got %q", res.Timeline.Entries[0].Label)
	}
}

func TestTimelineService_SingleCommandInFlight(t *testing.T) {
	repo := NewMockStatusRepo()
	repo.block = make(chan struct{})
	repo.entered = make(chan struct{})
	svc, _ := newService(repo)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Start(ctx, "c1", engagement.StepInterestShown, "")
		done <- err
	}()

	select {
	case <-repo.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first command never reached the API")
	}

	_, err := svc.Complete(ctx, "c1", engagement.StepInterestShown, "")
	if !errors.Is(err, application.ErrCommandInFlight) {
		t.Fatalf("expected ErrCommandInFlight, got %v", err)
	}

	// Other customers are independent.
	if _, err := svc.Timeline(ctx, "c2"); err != nil {
		t.Errorf("timeline for another customer: %v", err)
	}

	close(repo.block)
	if err := <-done; err != nil {
		t.Fatalf("first command: %v", err)
	}
}

func TestTimelineService_StartNextWhenComplete(t *testing.T) {
	repo := NewMockStatusRepo()
	for i, step := range engagement.AllSteps() {
		repo.events["c1"] = append(repo.events["c1"], engagement.StatusEvent{
			ID: fmt.Sprintf("e%d", i), Step: step, Status: engagement.StatusCompleted,
			CreatedAt: time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC),
		})
	}
	svc, _ := newService(repo)

	_, err := svc.StartNext(context.Background(), "c1", "")
	if !errors.Is(err, engagement.ErrTimelineComplete) {
		t.Errorf("expected ErrTimelineComplete, got %v", err)
	}
}

func TestTimelineService_History(t *testing.T) {
	repo := NewMockStatusRepo()
	svc, _ := newService(repo)
	ctx := context.Background()

	if _, err := svc.StartNext(ctx, "c1", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.StartNext(ctx, "c1", ""); err != nil {
		t.Fatalf("start second: %v", err)
	}

	hist, err := svc.History(ctx, "c1", engagement.StepFirstContact)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].Step != engagement.StepFirstContact {
		t.Errorf("unexpected history %+v", hist)
	}
}
