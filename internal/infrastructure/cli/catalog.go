package cli

import (
	"fmt"

	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/spf13/cobra"
)

var catalogJSON bool

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List engagement steps in order with their labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		labels, err := services.Timeline.StepLabels(cmd.Context())
		if err != nil {
			return MapError(fmt.Errorf("failed to load steps: %w", err))
		}

		type stepOut struct {
			ID    engagement.Step `json:"id"`
			Label string          `json:"label"`
		}
		var rows []stepOut
		for _, s := range engagement.AllSteps() {
			rows = append(rows, stepOut{ID: s, Label: labels.Label(s)})
		}

		out := cmd.OutOrStdout()
		if catalogJSON {
			return writeJSON(out, rows)
		}
		for i, r := range rows {
			fmt.Fprintf(out, "%d. %-20s %s\n", i+1, r.ID, r.Label)
		}
		return nil
	},
}

var statusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "List status types with their labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		labels, err := services.Timeline.StatusLabels(cmd.Context())
		if err != nil {
			return MapError(fmt.Errorf("failed to load statuses: %w", err))
		}

		out := cmd.OutOrStdout()
		if catalogJSON {
			return writeJSON(out, labels)
		}
		for _, s := range engagement.AllStatusTypes() {
			label := labels[s]
			if label == "" {
				label = string(s)
			}
			fmt.Fprintf(out, "%-10s %-12s shown as %s\n", s, label, s.DisplayState())
		}
		return nil
	},
}

func init() {
	stepsCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output in JSON format")
	statusesCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(stepsCmd)
	RootCmd.AddCommand(statusesCmd)
}
