package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		out, _, err := executeCommand(t, "", "--version")
		require.NoError(t, err)

		assert.Contains(t, out, "aphelion-agent version")
		assert.Contains(t, out, GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		out, _, err := executeCommand(t, "", "--help")
		require.NoError(t, err)

		assert.Contains(t, out, "Aphelion")
		assert.Contains(t, out, "research agent")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		// Check config flag exists
		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		// Check log-level flag exists
		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "info", logLevelFlag.DefValue)
	})

	t.Run("subcommands", func(t *testing.T) {
		names := map[string]bool{}
		for _, c := range GetRootCmd().Commands() {
			names[c.Name()] = true
		}

		for _, name := range []string{"init", "run", "stop", "status", "ping", "session"} {
			assert.True(t, names[name], "%s command should exist", name)
		}
	})
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
	assert.Equal(t, "aphelion-agent/"+version, userAgent())
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path, _ := writeTestConfig(t, nil)
	require.NoError(t, writeFile(path, "agent:\n  pacing_interval: 600\n"))

	_, _, err := executeCommand(t, "", "status", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
