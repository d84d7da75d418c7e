package cli

import (
	"bytes"
	"testing"

	"github.com/felixgeelhaar/leadline/internal/infrastructure/config"
	"github.com/felixgeelhaar/leadline/internal/infrastructure/statusapi/statusapitest"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// withProject writes a config pointing at a fake status API and makes it the
// project root for the duration of the test.
func withProject(t *testing.T) (string, *statusapitest.Server) {
	t.Helper()

	api := statusapitest.NewServer()
	t.Cleanup(api.Close)

	root := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = api.URL
	cfg.Messaging.Adapters = nil
	if err := config.Save(root, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	t.Setenv(config.EnvAPIURL, "")

	old := projectPath
	projectPath = root
	t.Cleanup(func() { projectPath = old })
	return root, api
}

// runCLI executes the root command with fresh flag values and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&bytes.Buffer{})
	RootCmd.SetArgs(append(args, "--project", projectPath))
	t.Cleanup(func() { RootCmd.SetArgs(nil) })

	err := RootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Name == "project" {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
