package cli

import (
	"fmt"

	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/spf13/cobra"
)

var (
	timelineJSON    bool
	timelineHistory string
	timelineRefresh bool
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <customer-id>",
	Short: "Show a customer's engagement timeline",
	Long: `Show a customer's engagement timeline.

Each step appears once, in the state of its most recent status event,
ordered by when the step first appeared.

Examples:
  leadline timeline 1042
  leadline timeline 1042 --json
  leadline timeline 1042 --history negotiation`,
	Args: cobra.ExactArgs(1),
	RunE: runTimelineCmd,
}

func runTimelineCmd(cmd *cobra.Command, args []string) error {
	services, err := loadServicesForCurrentDir()
	if err != nil {
		return err
	}
	svc := services.Timeline
	customerID := args[0]
	out := cmd.OutOrStdout()

	if timelineHistory != "" {
		step := engagement.Step(timelineHistory)
		events, err := svc.History(cmd.Context(), customerID, step)
		if err != nil {
			return MapError(fmt.Errorf("failed to load history: %w", err))
		}
		if timelineJSON {
			return writeJSON(out, events)
		}
		labels, _ := svc.StepLabels(cmd.Context())
		renderHistory(out, step, labels.Label(step), events)
		return nil
	}

	load := svc.Timeline
	if timelineRefresh {
		load = svc.Refresh
	}
	tl, err := load(cmd.Context(), customerID)
	if err != nil {
		return MapError(fmt.Errorf("failed to load timeline: %w", err))
	}

	if timelineJSON {
		return writeJSON(out, tl)
	}
	renderTimeline(out, tl)
	return nil
}

func init() {
	timelineCmd.Flags().BoolVar(&timelineJSON, "json", false, "Output in JSON format")
	timelineCmd.Flags().StringVar(&timelineHistory, "history", "", "Show every recorded event of one step")
	timelineCmd.Flags().BoolVar(&timelineRefresh, "refresh", false, "Bypass the cache")
	RootCmd.AddCommand(timelineCmd)
}
