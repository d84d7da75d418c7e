package engagement

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// StepContext carries the data the step machine guards on.
type StepContext struct {
	Step  Step
	Guard func(step Step, cmd Command) bool
}

// StepStateMachine enforces the legal transitions of a single step.
type StepStateMachine struct {
	step        Step
	interpreter *statekit.Interpreter[StepContext]
}

// NewStepStateMachine builds a machine positioned at the given state. The
// optional guard can veto a command; nil allows everything the table allows.
func NewStepStateMachine(step Step, initial DisplayState, guard func(Step, Command) bool) (*StepStateMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid initial state: %s", initial)
	}
	if guard == nil {
		guard = func(Step, Command) bool { return true }
	}

	builder := statekit.NewMachine[StepContext]("step-machine").
		WithInitial(statekit.StateID(initial)).
		WithContext(StepContext{
			Step:  step,
			Guard: guard,
		}).
		WithGuard("stepGuard", func(ctx StepContext, e statekit.Event) bool {
			return ctx.Guard(ctx.Step, Command(e.Type))
		})

	builder.State(statekit.StateID(StatePending)).
		On(statekit.EventType(CommandStart)).Target(statekit.StateID(StateCurrent)).Guard("stepGuard").
		Done()

	builder.State(statekit.StateID(StateCurrent)).
		On(statekit.EventType(CommandComplete)).Target(statekit.StateID(StateCompleted)).Guard("stepGuard").
		Done()

	// Reopen is only reachable from completed.
	builder.State(statekit.StateID(StateCompleted)).
		On(statekit.EventType(CommandReopen)).Target(statekit.StateID(StatePending)).Guard("stepGuard").
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build step machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &StepStateMachine{step: step, interpreter: interpreter}, nil
}

// Transition applies a command, returning a TransitionError when the current
// state does not accept it or the guard rejects it.
func (sm *StepStateMachine) Transition(cmd Command) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(cmd)})
	if sm.Current() != before {
		return nil
	}
	return &TransitionError{Step: sm.step, From: before, Command: cmd}
}

// Current returns the machine's state.
func (sm *StepStateMachine) Current() DisplayState {
	return DisplayState(sm.interpreter.State().Value)
}

// CanTransition reports whether the command is legal from the current state.
func (sm *StepStateMachine) CanTransition(cmd Command) bool {
	return sm.Current().CanTransitionWith(cmd)
}

// ValidCommands returns the commands accepted in the current state.
func (sm *StepStateMachine) ValidCommands() []Command {
	return sm.Current().ValidCommands()
}
