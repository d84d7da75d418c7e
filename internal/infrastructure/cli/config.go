package cli

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configInitURL   string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the leadline configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .leadline/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		path := config.Path(root)
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return NewCLIError("config already exists", "Use --force to overwrite "+path, nil)
		}

		cfg := config.Default()
		if configInitURL != "" {
			cfg.API.BaseURL = configInitURL
		}
		if err := config.Save(root, cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (token redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		if cfg.API.Token != "" {
			cfg.API.Token = "********"
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitURL, "api-url", "", "Base URL of the customer status API")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	RootCmd.AddCommand(configCmd)
}
