package engagement_test

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
)

func TestPlanCommand_StartNextStepCreates(t *testing.T) {
	tl := engagement.NewTimeline("c1", nil, nil)

	plan, err := engagement.PlanCommand(tl, engagement.StepInterestShown, engagement.CommandStart)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if !plan.Creates() || plan.Status != engagement.StatusStarted {
		t.Errorf("expected create with started, got %+v", plan)
	}
	if plan.From != engagement.StatePending || plan.To != engagement.StateCurrent {
		t.Errorf("unexpected transition %s -> %s", plan.From, plan.To)
	}
}

func TestPlanCommand_StartOutOfOrder(t *testing.T) {
	tl := engagement.NewTimeline("c1", nil, nil)

	_, err := engagement.PlanCommand(tl, engagement.StepNegotiation, engagement.CommandStart)
	if !errors.Is(err, engagement.ErrStepNotNext) {
		t.Fatalf("expected ErrStepNotNext, got %v", err)
	}
	var notNext *engagement.StepNotNextError
	if !errors.As(err, &notNext) || notNext.Next != engagement.StepInterestShown {
		t.Errorf("expected next step interest_shown, got %+v", notNext)
	}
}

func TestPlanCommand_CompleteUpdatesLatestEvent(t *testing.T) {
	events := []engagement.StatusEvent{
		ev("s1", engagement.StepInterestShown, engagement.StatusStarted, 1),
	}
	tl := engagement.NewTimeline("c1", events, nil)

	plan, err := engagement.PlanCommand(tl, engagement.StepInterestShown, engagement.CommandComplete)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if plan.Creates() || plan.StatusID != "s1" || plan.Status != engagement.StatusCompleted {
		t.Errorf("expected update of s1 to completed, got %+v", plan)
	}
}

func TestPlanCommand_ReopenRequiresCompleted(t *testing.T) {
	events := []engagement.StatusEvent{
		ev("s1", engagement.StepInterestShown, engagement.StatusStarted, 1),
	}
	tl := engagement.NewTimeline("c1", events, nil)

	_, err := engagement.PlanCommand(tl, engagement.StepInterestShown, engagement.CommandReopen)
	var transErr *engagement.TransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}

func TestPlanCommand_RestartAfterReopen(t *testing.T) {
	events := []engagement.StatusEvent{
		ev("s1", engagement.StepInterestShown, engagement.StatusCompleted, 1),
		ev("s2", engagement.StepInterestShown, engagement.StatusReopened, 2),
	}
	tl := engagement.NewTimeline("c1", events, nil)

	plan, err := engagement.PlanCommand(tl, engagement.StepInterestShown, engagement.CommandStart)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if plan.StatusID != "s2" {
		t.Errorf("expected update of s2, got %+v", plan)
	}
}

func TestPlanCommand_MissingEntry(t *testing.T) {
	tl := engagement.NewTimeline("c1", nil, nil)

	_, err := engagement.PlanCommand(tl, engagement.StepApproval, engagement.CommandComplete)
	if !errors.Is(err, engagement.ErrNoEntry) {
		t.Errorf("expected ErrNoEntry, got %v", err)
	}

	_, err = engagement.PlanCommand(tl, engagement.Step("bogus"), engagement.CommandStart)
	if !errors.Is(err, engagement.ErrUnknownStep) {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
}
