package cli

import (
	"fmt"

	"github.com/harun/aphelion/internal/config"
	"github.com/harun/aphelion/internal/logger"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aphelion-agent",
	Short: "Aphelion - research agent for the Aphelion gateway",
	Long: `Aphelion is a long-running research agent. It keeps a durable session with
the Aphelion gateway, periodically searches for and runs research tools, and
checkpoints its working memory back to the gateway.`,
	Version:       version,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.aphelion/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// userAgent identifies this build to the gateway
func userAgent() string {
	return "aphelion-agent/" + version
}

// loadConfig loads the config file named by --config
func loadConfig() (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return loader, cfg, nil
}

// newLogger builds the process logger. An explicit --log-level wins over the config file.
func newLogger(cmd *cobra.Command, cfg *config.Config, withFile bool) (*logger.Logger, error) {
	level := cfg.Logging.Level
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		level = logLevel
	}

	logCfg := logger.Config{
		Level:     level,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
		Output:    cmd.ErrOrStderr(),
	}
	if withFile {
		logCfg.File = cfg.Logging.File
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}
