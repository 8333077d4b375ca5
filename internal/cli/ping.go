package cli

import (
	"errors"
	"fmt"

	"github.com/harun/aphelion/pkg/gateway"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the gateway is reachable",
	Long: `Call the gateway health endpoint and check its version against
gateway.min_version when one is configured.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg, false)
	if err != nil {
		return err
	}
	defer log.Close()

	client, err := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.APIURL,
		Token:     cfg.Gateway.Token,
		Timeout:   cfg.Gateway.Timeout,
		UserAgent: userAgent(),
		Logger:    log.Component("gateway"),
	})
	if err != nil {
		return err
	}

	status, err := client.Health(cmd.Context())
	if err != nil {
		return pingError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Gateway: %s\n", cfg.Gateway.APIURL)
	fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", status.Status)
	if status.Version != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", status.Version)
	}

	if err := gateway.CheckVersion(status, cfg.Gateway.MinVersion); err != nil {
		return err
	}

	return nil
}

// pingError tells a rejected token and a transient outage apart from a dead gateway
func pingError(err error) error {
	if errors.Is(err, gateway.ErrUnauthorized) {
		return fmt.Errorf("gateway rejected token (check gateway.token or APHELION_TOKEN): %w", err)
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			return fmt.Errorf("gateway temporarily unavailable, retry later: %w", err)
		}
		return fmt.Errorf("gateway health check failed: %w", err)
	}
	return fmt.Errorf("gateway unreachable: %w", err)
}
