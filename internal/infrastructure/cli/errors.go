package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/statusapi"
	"github.com/felixgeelhaar/leadline/pkg/application"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var transErr *engagement.TransitionError
	if errors.As(err, &transErr) {
		hint := "Check the step state with 'leadline timeline <customer>'"
		if cmds := transErr.From.ValidCommands(); len(cmds) > 0 {
			hint = fmt.Sprintf("Step '%s' is %s; allowed: %v", transErr.Step, transErr.From, cmds)
		}
		return NewCLIError("transition not allowed", hint, err)
	}

	var notNext *engagement.StepNotNextError
	if errors.As(err, &notNext) && notNext.Next != "" {
		return NewCLIError("step cannot be started yet",
			fmt.Sprintf("Start '%s' first, or run 'leadline start <customer>' to start the next step", notNext.Next), err)
	}

	var apiErr *statusapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Unauthorized():
			return NewCLIError("status API rejected the credentials", "Set api.token in .leadline/config.yaml or LEADLINE_API_TOKEN", err)
		case apiErr.NotFound():
			return NewCLIError("not found in status API", "Check the customer id and status id", err)
		default:
			return NewCLIError("status API request failed", "Nothing was changed; retry the same command", err)
		}
	}

	switch {
	case errors.Is(err, engagement.ErrTimelineComplete):
		return NewCLIError("every step is already on the timeline", "Use 'leadline complete' or 'leadline reopen' on an existing step", err)
	case errors.Is(err, engagement.ErrNoEntry):
		return NewCLIError("step is not on the timeline", "Start it first with 'leadline start <customer> <step>'", err)
	case errors.Is(err, engagement.ErrUnknownStep):
		return NewCLIError("unknown step", "Run 'leadline steps' to list valid step ids", err)
	case errors.Is(err, application.ErrCommandInFlight):
		return NewCLIError("another command is running for this customer", "Wait for it to finish and retry", err)
	}

	return err
}
