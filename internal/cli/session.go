package cli

import (
	"fmt"

	"github.com/harun/aphelion/internal/daemon"
	"github.com/harun/aphelion/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print the agent session id",
	Long: `Print the persisted session id, creating and storing a new one when
the session slot is empty. With session.remote_create the gateway issues the id.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg, false)
	if err != nil {
		return err
	}
	defer log.Close()

	var generator session.Generator = session.LocalGenerator{}
	if cfg.Session.RemoteCreate {
		client, err := daemon.NewGatewayClient(cfg, userAgent(), log.Component("gateway"))
		if err != nil {
			return err
		}
		generator = session.RemoteGenerator{Creator: client}
	}

	store := session.NewStore(session.StoreConfig{
		Path:      cfg.Session.Path,
		Generator: generator,
		Logger:    log.Component("session"),
	})

	id, err := store.LoadOrCreate(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
