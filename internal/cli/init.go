package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harun/aphelion/internal/config"
	"github.com/spf13/cobra"
)

var (
	initInteractive bool
	initForce       bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the agent configuration",
	Long: `Create the agent configuration file and an empty session slot.
With --interactive, a wizard asks for the gateway URL, token, research query
and schedule. The data directory is the directory holding the config file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "run the configuration wizard")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	configPath := loader.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	if initInteractive {
		wizard := config.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout())
		var err error
		if cfg, err = wizard.Run(); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	cfg.DataDir = filepath.Dir(configPath)

	// The token may come from APHELION_TOKEN instead of the file
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	sessionPath := filepath.Join(cfg.DataDir, "session")
	if _, err := os.Stat(sessionPath); os.IsNotExist(err) {
		if err := os.WriteFile(sessionPath, nil, 0600); err != nil {
			return fmt.Errorf("failed to create session slot: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration saved to: %s\n", configPath)
	if cfg.Gateway.Token == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s before starting the agent.\n", config.TokenEnvVariable)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "You can now start the agent with: aphelion-agent run")

	return nil
}
