package cli

import (
	"strings"
	"testing"

	"github.com/harun/aphelion/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCommand(t *testing.T) {
	t.Run("creates then reuses", func(t *testing.T) {
		path, cfg := writeTestConfig(t, nil)

		out, _, err := executeCommand(t, "", "session", "--config", path)
		require.NoError(t, err)
		first := strings.TrimSpace(out)
		assert.Regexp(t, `^session_\d+_[0-9a-f]{8}$`, first)
		assert.Equal(t, first, readSessionID(cfg.Session.Path))

		out, _, err = executeCommand(t, "", "session", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, first, strings.TrimSpace(out))
	})

	t.Run("remote", func(t *testing.T) {
		gw := newFakeGateway(t)
		t.Setenv(config.TokenEnvVariable, "test-token")
		path, _ := writeTestConfig(t, func(cfg *config.Config) {
			cfg.Gateway.APIURL = gw.URL
			cfg.Session.RemoteCreate = true
		})

		out, _, err := executeCommand(t, "", "session", "--config", path)
		require.NoError(t, err)
		assert.Equal(t, "gw-session", strings.TrimSpace(out))
	})
}
