package engagement

import "fmt"

// CommandPlan describes the request a validated command translates to.
type CommandPlan struct {
	Step    Step       `json:"step"`
	Command Command    `json:"command"`
	Status  StatusType `json:"status"`
	// StatusID is the event to update. Empty means a new event is created.
	StatusID string       `json:"status_id,omitempty"`
	From     DisplayState `json:"from"`
	To       DisplayState `json:"to"`
}

// Creates returns true when the command records a new status event.
func (p CommandPlan) Creates() bool {
	return p.StatusID == ""
}

// PlanCommand checks a command against the timeline and the transition table
// and returns the request that carries it out.
func PlanCommand(t *Timeline, step Step, cmd Command) (CommandPlan, error) {
	if cmd.Status() == "" {
		return CommandPlan{}, fmt.Errorf("invalid command: %s", cmd)
	}

	entry, exists := t.Entry(step)
	if !exists {
		if !step.IsValid() {
			return CommandPlan{}, fmt.Errorf("%w: %s", ErrUnknownStep, step)
		}
		if cmd != CommandStart {
			return CommandPlan{}, fmt.Errorf("%s %s: %w", cmd, step, ErrNoEntry)
		}
		if t.NextStep != step {
			return CommandPlan{}, &StepNotNextError{Requested: step, Next: t.NextStep}
		}
	}

	from := t.StateOf(step)
	sm, err := NewStepStateMachine(step, from, nil)
	if err != nil {
		return CommandPlan{}, err
	}
	if err := sm.Transition(cmd); err != nil {
		return CommandPlan{}, err
	}

	return CommandPlan{
		Step:     step,
		Command:  cmd,
		Status:   cmd.Status(),
		StatusID: entry.StatusEventID,
		From:     from,
		To:       sm.Current(),
	}, nil
}
