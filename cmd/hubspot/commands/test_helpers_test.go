package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/hubspot-client/internal/hubspottest"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// resetViper starts a test from empty settings with a private config file.
func resetViper(t *testing.T, settings map[string]interface{}) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	configFile := filepath.Join(t.TempDir(), "config.yml")
	viper.SetConfigFile(configFile)

	for key, value := range settings {
		viper.Set(key, value)
	}

	return configFile
}

// useServer points the CLI at a fake server through the global flags.
func useServer(t *testing.T, server *hubspottest.TestServer, output string) {
	t.Helper()

	resetViper(t, map[string]interface{}{
		"api":    server.URL,
		"token":  server.Token,
		"output": output,
	})
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}
