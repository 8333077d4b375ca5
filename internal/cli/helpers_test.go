package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harun/aphelion/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and returns stdout and stderr.
// Flag state is reset afterwards since the command tree is shared.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := GetRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	t.Cleanup(func() {
		resetFlags(cmd)
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetIn(nil)
	})

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeTestConfig saves a config rooted in a temp dir and returns its path
func writeTestConfig(t *testing.T, mutate func(cfg *config.Config)) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Logging.Pretty = false
	cfg.Checkpoint.Interval = time.Nanosecond
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.NewLoader(path).Save(cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	return path, loaded
}

