package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/aphelion/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommand(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")

		out, _, err := executeCommand(t, "", "init", "--config", path)
		require.NoError(t, err)

		assert.Contains(t, out, "Configuration saved to: "+path)
		assert.Contains(t, out, "Set APHELION_TOKEN")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.DataDir)
		assert.Equal(t, config.DefaultQuery, cfg.Agent.Query)
		assert.Equal(t, filepath.Join(dir, "session"), cfg.Session.Path)

		info, err := os.Stat(cfg.Session.Path)
		require.NoError(t, err)
		assert.Zero(t, info.Size())
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")

		_, _, err := executeCommand(t, "", "init", "--config", path)
		require.NoError(t, err)

		_, _, err = executeCommand(t, "", "init", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		_, _, err = executeCommand(t, "", "init", "--config", path, "--force")
		assert.NoError(t, err)
	})

	t.Run("keeps existing session", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, writeFile(filepath.Join(dir, "session"), "session_existing"))

		_, _, err := executeCommand(t, "", "init", "--config", path)
		require.NoError(t, err)

		assert.Equal(t, "session_existing", readSessionID(filepath.Join(dir, "session")))
	})

	t.Run("interactive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		answers := "\n" + // gateway url
			"\n" + // token
			"Parkinson's disease\n" +
			"\n" + // tool
			"*/30 * * * *\n" +
			"debug\n"

		out, _, err := executeCommand(t, answers, "init", "--config", path, "--interactive")
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration complete!")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Parkinson's disease", cfg.Agent.Query)
		assert.Equal(t, "Parkinson's disease", cfg.Agent.ToolParams["q"])
		assert.Equal(t, config.DefaultTool, cfg.Agent.Tool)
		assert.Equal(t, "*/30 * * * *", cfg.Agent.Schedule)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}
