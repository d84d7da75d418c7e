package cli

import (
	"fmt"

	"github.com/felixgeelhaar/leadline/pkg/application"
	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
	"github.com/spf13/cobra"
)

func createStepCommand(use, short string, command engagement.Command) *cobra.Command {
	var notes string
	var asJSON bool

	args := cobra.ExactArgs(2)
	if command == engagement.CommandStart {
		args = cobra.RangeArgs(1, 2)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := loadServicesForCurrentDir()
			if err != nil {
				return err
			}
			svc := services.Timeline
			customerID := args[0]

			var res *application.CommandResult
			if len(args) == 1 {
				res, err = svc.StartNext(cmd.Context(), customerID, notes)
			} else {
				res, err = svc.Execute(cmd.Context(), customerID, engagement.Step(args[1]), command, notes)
			}
			if err != nil {
				return MapError(fmt.Errorf("failed to %s step: %w", command, err))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}

			fmt.Fprintf(out, "Step %s: %s -> %s\n", res.Plan.Step, res.Plan.From, res.Plan.To)
			if res.Timeline != nil {
				fmt.Fprintln(out)
				renderTimeline(out, res.Timeline)
			} else if res.RefreshErr != nil {
				fmt.Fprintf(out, "Warning: could not refresh timeline: %v\n", res.RefreshErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Notes to attach to the status event")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func init() {
	RootCmd.AddCommand(createStepCommand("start <customer-id> [step]", "Start a step (defaults to the next step)", engagement.CommandStart))
	RootCmd.AddCommand(createStepCommand("complete <customer-id> <step>", "Mark a current step as completed", engagement.CommandComplete))
	RootCmd.AddCommand(createStepCommand("reopen <customer-id> <step>", "Reopen a completed step", engagement.CommandReopen))
}
