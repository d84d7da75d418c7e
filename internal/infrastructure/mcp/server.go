package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/leadline/pkg/application"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/felixgeelhaar/mcp-go"
)

type Server struct {
	mcpServer *mcp.Server
	timeline  *application.TimelineService
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

const stepsResourceURI = "leadline://steps"

// mcpErr returns a user-friendly error for MCP clients.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// NewServer loads the configuration under root and exposes its timeline
// service as MCP tools.
func NewServer(root string) (*Server, error) {
	services, err := wiring.BuildAppServices(root, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	if services == nil {
		return nil, fmt.Errorf("services initialization returned nil")
	}
	return NewServerWithServices(services), nil
}

func NewServerWithServices(services *wiring.AppServices) *Server {
	info := mcp.ServerInfo{
		Name:    "leadline",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Leadline MCP Server"),
			mcp.WithDescription("Leadline exposes customer engagement timelines and step transitions to MCP clients."),
			mcp.WithWebsiteURL("https://github.com/felixgeelhaar/leadline"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Read a customer's timeline before changing it. Start only the suggested next step; complete current steps; reopen completed ones."),
		),
		timeline: services.Timeline,
	}

	s.registerTools()
	s.registerStepsResource()
	return s
}

type CustomerArgs struct {
	CustomerID string `json:"customer_id" jsonschema:"description=The customer whose timeline to read"`
	Refresh    bool   `json:"refresh,omitempty" jsonschema:"description=Bypass the cache and refetch from the status API"`
}

type StepCommandArgs struct {
	CustomerID string `json:"customer_id" jsonschema:"description=The customer whose timeline to change"`
	Step       string `json:"step" jsonschema:"description=The step id (e.g. first_contact)"`
	Notes      string `json:"notes,omitempty" jsonschema:"description=Optional notes stored with the status event"`
}

type StartStepArgs struct {
	CustomerID string `json:"customer_id" jsonschema:"description=The customer whose timeline to change"`
	Step       string `json:"step,omitempty" jsonschema:"description=The step id to start; defaults to the suggested next step"`
	Notes      string `json:"notes,omitempty" jsonschema:"description=Optional notes stored with the status event"`
}

type HistoryArgs struct {
	CustomerID string `json:"customer_id" jsonschema:"description=The customer to inspect"`
	Step       string `json:"step" jsonschema:"description=The step id whose status events to list"`
}

type stepInfo struct {
	ID    engagement.Step `json:"id"`
	Label string          `json:"label"`
	Index int             `json:"index"`
}

type commandResponse struct {
	Plan     engagement.CommandPlan  `json:"plan"`
	Event    *engagement.StatusEvent `json:"event"`
	Timeline *engagement.Timeline    `json:"timeline,omitempty"`
	Warning  string                  `json:"warning,omitempty"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("leadline_get_timeline").
		Description("Retrieve a customer's engagement timeline with progress and the suggested next step").
		Handler(s.handleGetTimeline)

	s.mcpServer.Tool("leadline_start_step").
		Description("Start a step on a customer's timeline (defaults to the suggested next step)").
		Handler(s.handleStartStep)

	s.mcpServer.Tool("leadline_complete_step").
		Description("Mark a current step as completed").
		Handler(s.handleCompleteStep)

	s.mcpServer.Tool("leadline_reopen_step").
		Description("Reopen a completed step so it becomes pending again").
		Handler(s.handleReopenStep)

	s.mcpServer.Tool("leadline_list_steps").
		Description("List the engagement steps in timeline order with their display labels").
		Handler(s.handleListSteps)

	s.mcpServer.Tool("leadline_step_history").
		Description("List every status event recorded for one step of a customer's timeline").
		Handler(s.handleStepHistory)
}

func (s *Server) registerStepsResource() {
	s.mcpServer.Resource(stepsResourceURI).
		Name(stepsResourceURI).
		Description("Engagement steps in timeline order").
		MimeType("application/json").
		Handler(func(ctx context.Context, _ string, _ map[string]string) (*mcp.ResourceContent, error) {
			data, err := json.Marshal(s.steps(ctx))
			if err != nil {
				return nil, err
			}
			return &mcp.ResourceContent{
				URI:      stepsResourceURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}

func (s *Server) handleGetTimeline(ctx context.Context, args CustomerArgs) (any, error) {
	if args.CustomerID == "" {
		return nil, mcpErr("customer_id is required.")
	}
	var (
		tl  *engagement.Timeline
		err error
	)
	if args.Refresh {
		tl, err = s.timeline.Refresh(ctx, args.CustomerID)
	} else {
		tl, err = s.timeline.Timeline(ctx, args.CustomerID)
	}
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to load the timeline for customer '%s'. Check that the status API is reachable.", args.CustomerID))
	}
	return tl, nil
}

func (s *Server) handleStartStep(ctx context.Context, args StartStepArgs) (any, error) {
	if args.CustomerID == "" {
		return nil, mcpErr("customer_id is required.")
	}
	if args.Step == "" {
		res, err := s.timeline.StartNext(ctx, args.CustomerID, args.Notes)
		if err != nil {
			return nil, commandErr(engagement.CommandStart, err)
		}
		return toResponse(res), nil
	}
	return s.runCommand(ctx, StepCommandArgs(args), engagement.CommandStart)
}

func (s *Server) handleCompleteStep(ctx context.Context, args StepCommandArgs) (any, error) {
	return s.runCommand(ctx, args, engagement.CommandComplete)
}

func (s *Server) handleReopenStep(ctx context.Context, args StepCommandArgs) (any, error) {
	return s.runCommand(ctx, args, engagement.CommandReopen)
}

func (s *Server) runCommand(ctx context.Context, args StepCommandArgs, cmd engagement.Command) (any, error) {
	if args.CustomerID == "" || args.Step == "" {
		return nil, mcpErr("customer_id and step are required.")
	}
	step, err := engagement.ParseStep(args.Step)
	if err != nil {
		return nil, commandErr(cmd, err)
	}
	res, err := s.timeline.Execute(ctx, args.CustomerID, step, cmd, args.Notes)
	if err != nil {
		return nil, commandErr(cmd, err)
	}
	return toResponse(res), nil
}

func (s *Server) handleListSteps(ctx context.Context, args struct{}) (any, error) {
	return s.steps(ctx), nil
}

func (s *Server) steps(ctx context.Context) []stepInfo {
	labels, err := s.timeline.StepLabels(ctx)
	if err != nil {
		// Labels are cosmetic; fall back to the built-in names.
		labels = nil
	}
	steps := engagement.AllSteps()
	out := make([]stepInfo, 0, len(steps))
	for i, st := range steps {
		out = append(out, stepInfo{ID: st, Label: labels.Label(st), Index: i})
	}
	return out
}

func (s *Server) handleStepHistory(ctx context.Context, args HistoryArgs) (any, error) {
	if args.CustomerID == "" || args.Step == "" {
		return nil, mcpErr("customer_id and step are required.")
	}
	events, err := s.timeline.History(ctx, args.CustomerID, engagement.Step(args.Step))
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to load the history of step '%s' for customer '%s'.", args.Step, args.CustomerID))
	}
	return events, nil
}

func toResponse(res *application.CommandResult) commandResponse {
	out := commandResponse{Plan: res.Plan, Event: res.Event, Timeline: res.Timeline}
	if res.RefreshErr != nil {
		out.Warning = "The command succeeded but the timeline could not be refreshed; read it again."
	}
	return out
}

// commandErr turns command failures into messages an agent can act on.
func commandErr(cmd engagement.Command, err error) error {
	var transErr *engagement.TransitionError
	if errors.As(err, &transErr) {
		return mcpErr(fmt.Sprintf("Cannot %s step '%s' while it is %s. Allowed commands: %v.", cmd, transErr.Step, transErr.From, transErr.From.ValidCommands()))
	}
	var notNext *engagement.StepNotNextError
	if errors.As(err, &notNext) && notNext.Next != "" {
		return mcpErr(fmt.Sprintf("Step '%s' cannot be started yet. The next step is '%s'.", notNext.Requested, notNext.Next))
	}
	switch {
	case errors.Is(err, engagement.ErrTimelineComplete):
		return mcpErr("Every step is already on the timeline. Complete or reopen an existing step instead.")
	case errors.Is(err, engagement.ErrNoEntry):
		return mcpErr("The step is not on the timeline yet. Start it first.")
	case errors.Is(err, engagement.ErrUnknownStep):
		return mcpErr("Unknown step id. Use leadline_list_steps to see valid ids.")
	case errors.Is(err, application.ErrCommandInFlight):
		return mcpErr("Another command is running for this customer. Retry when it finishes.")
	}
	return mcpErr(fmt.Sprintf("Failed to %s the step. The status API did not accept the change; nothing was modified.", cmd))
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}
