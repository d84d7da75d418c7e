package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	inframcp "github.com/felixgeelhaar/leadline/internal/infrastructure/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpTransport   string
	mcpAddr        string
	mcpWatchConfig bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Leadline MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("LEADLINE_SKIP_MCP_START") == "true" {
			return nil
		}
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		inframcp.Version, inframcp.BuildCommit, inframcp.BuildDate = Version, Commit, Date
		server := inframcp.NewServerWithServices(services)

		ctx := cmd.Context()
		if mcpWatchConfig {
			go func() {
				if err := services.WatchConfig(ctx, root, slog.Default()); err != nil && ctx.Err() == nil {
					slog.Warn("config watcher stopped", "error", err)
				}
			}()
		}
		switch strings.ToLower(mcpTransport) {
		case "stdio", "":
			return server.ServeStdio(ctx)
		case "http":
			return server.ServeHTTP(ctx, mcpAddr)
		case "ws", "websocket":
			return server.ServeWebSocket(ctx, mcpAddr)
		default:
			return fmt.Errorf("unsupported transport: %s", mcpTransport)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http, ws)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for http/ws transports")
	mcpCmd.Flags().BoolVar(&mcpWatchConfig, "watch-config", true, "Reload notifiers when .leadline/config.yaml changes")
	RootCmd.AddCommand(mcpCmd)
}
