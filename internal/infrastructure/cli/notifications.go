package cli

import (
	"fmt"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/config"
	"github.com/felixgeelhaar/leadline/internal/infrastructure/messaging"
	"github.com/spf13/cobra"
)

var (
	notificationsJSON  bool
	notificationsClear bool
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications that no adapter could deliver",
	Long: `List notifications that a configured adapter failed to deliver.

Failed deliveries are never retried; they are kept in
.leadline/failed-notifications.jsonl until cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		store := messaging.NewDeadLetterStore(config.FailedNotificationsPath(root))
		out := cmd.OutOrStdout()

		if notificationsClear {
			if err := store.Clear(); err != nil {
				return fmt.Errorf("failed to clear notifications: %w", err)
			}
			fmt.Fprintln(out, "Cleared failed notifications.")
			return nil
		}

		entries, err := store.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read notifications: %w", err)
		}
		if notificationsJSON {
			if entries == nil {
				entries = []messaging.FailedDelivery{}
			}
			return writeJSON(out, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No failed notifications.")
			return nil
		}
		for _, fd := range entries {
			fmt.Fprintf(out, "[%s] %s (%s) %s: %s\n    %s\n",
				fd.FailedAt.Format(timeLayout), fd.Adapter, fd.AdapterType,
				fd.Notification.Level, fd.Notification.Title, fd.Error)
		}
		return nil
	},
}

func init() {
	notificationsCmd.Flags().BoolVar(&notificationsJSON, "json", false, "Output in JSON format")
	notificationsCmd.Flags().BoolVar(&notificationsClear, "clear", false, "Remove all recorded failures")
	RootCmd.AddCommand(notificationsCmd)
}
