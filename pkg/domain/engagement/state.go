package engagement

import "fmt"

// DisplayState is the state a step is shown in on the timeline.
type DisplayState string

const (
	StatePending   DisplayState = "pending"
	StateCurrent   DisplayState = "current"
	StateCompleted DisplayState = "completed"
)

// Command is a user action that moves a step between display states.
type Command string

const (
	CommandStart    Command = "start"
	CommandComplete Command = "complete"
	CommandReopen   Command = "reopen"
)

// validTransitions defines the allowed commands per state.
// Map: currentState -> command -> targetState
var validTransitions = map[DisplayState]map[Command]DisplayState{
	StatePending: {
		CommandStart: StateCurrent,
	},
	StateCurrent: {
		CommandComplete: StateCompleted,
	},
	StateCompleted: {
		CommandReopen: StatePending,
	},
}

// AllDisplayStates returns all display states.
func AllDisplayStates() []DisplayState {
	return []DisplayState{StatePending, StateCurrent, StateCompleted}
}

// IsValid returns true if the state is known.
func (s DisplayState) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s DisplayState) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the state.
func (s DisplayState) DisplayName() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateCurrent:
		return "Current"
	case StateCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// CanTransitionWith returns true if the command is allowed from this state.
func (s DisplayState) CanTransitionWith(cmd Command) bool {
	_, ok := validTransitions[s][cmd]
	return ok
}

// TransitionWith returns the target state for a command, or an error if the
// command is not allowed.
func (s DisplayState) TransitionWith(cmd Command) (DisplayState, error) {
	target, ok := validTransitions[s][cmd]
	if !ok {
		return s, &TransitionError{From: s, Command: cmd}
	}
	return target, nil
}

// ValidCommands returns the commands allowed from this state.
func (s DisplayState) ValidCommands() []Command {
	var cmds []Command
	for _, cmd := range AllCommands() {
		if s.CanTransitionWith(cmd) {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// AllCommands returns every command.
func AllCommands() []Command {
	return []Command{CommandStart, CommandComplete, CommandReopen}
}

// Status returns the status type a command records.
func (c Command) Status() StatusType {
	switch c {
	case CommandStart:
		return StatusStarted
	case CommandComplete:
		return StatusCompleted
	case CommandReopen:
		return StatusReopened
	default:
		return ""
	}
}

// ParseCommand parses a string into a Command.
func ParseCommand(s string) (Command, error) {
	cmd := Command(s)
	if cmd.Status() == "" {
		return "", fmt.Errorf("invalid command: %s", s)
	}
	return cmd, nil
}
