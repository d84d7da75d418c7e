package engagement

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStep is returned when a step id is not part of the enumeration.
	ErrUnknownStep = errors.New("unknown step")
	// ErrNoEntry is returned when a command targets a step with no timeline entry.
	ErrNoEntry = errors.New("step has no timeline entry")
	// ErrStepNotNext is returned when starting a step other than the next candidate.
	ErrStepNotNext = errors.New("step is not the next step")
	// ErrTimelineComplete is returned when every step is already on the timeline.
	ErrTimelineComplete = errors.New("all steps are already on the timeline")
)

// TransitionError reports a command that is not allowed from a state.
type TransitionError struct {
	Step    Step
	From    DisplayState
	Command Command
}

func (e *TransitionError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("cannot %s step %s while it is %s", e.Command, e.Step, e.From)
	}
	return fmt.Sprintf("cannot %s while %s", e.Command, e.From)
}

// StepNotNextError carries the step that was requested and the one expected.
type StepNotNextError struct {
	Requested Step
	Next      Step
}

func (e *StepNotNextError) Error() string {
	if e.Next == "" {
		return fmt.Sprintf("cannot start %s: %v", e.Requested, ErrTimelineComplete)
	}
	return fmt.Sprintf("cannot start %s: next step is %s", e.Requested, e.Next)
}

func (e *StepNotNextError) Unwrap() error {
	if e.Next == "" {
		return ErrTimelineComplete
	}
	return ErrStepNotNext
}
