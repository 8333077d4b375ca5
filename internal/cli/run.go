package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/harun/aphelion/internal/daemon"
	"github.com/harun/aphelion/pkg/agent"
	"github.com/spf13/cobra"
)

var (
	runOnce     bool
	runSchedule string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Aphelion agent",
	Long: `Run the Aphelion agent in the foreground until interrupted.
Each cycle searches the gateway for tools, runs the configured research tool and
checkpoints working memory when the checkpoint interval has elapsed.
SIGINT or SIGTERM stop the agent after the current cycle.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	runCmd.Flags().StringVar(&runSchedule, "cron", "", "cron expression pacing cycles (overrides agent.schedule)")
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	loader, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runSchedule != "" {
		if _, err := agent.NewCronPacer(runSchedule); err != nil {
			return err
		}
		cfg.Agent.Schedule = runSchedule
	}

	log, err := newLogger(cmd, cfg, true)
	if err != nil {
		return err
	}
	defer log.Close()

	opts := daemon.Options{
		Loader:    loader,
		UserAgent: userAgent(),
		Version:   version,
	}
	if runOnce {
		opts.MaxCycles = 1
	}

	d, err := daemon.New(cfg, log, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	return d.Wait(ctx)
}
