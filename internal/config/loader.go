package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a new config loader. An empty path means .aphelion/config.yaml.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration. A missing file yields defaults plus APHELION_* environment overrides.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// APHELION_GATEWAY_TOKEN, APHELION_AGENT_QUERY, ...
	v.SetEnvPrefix("APHELION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gateway.token", TokenEnvVariable, "APHELION_GATEWAY_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(configPath); err == nil {
		if err := ValidateFile(configPath); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	l.v = v
	return l.decode()
}

// decode unmarshals the current viper state and fills derived paths
func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDir
	}

	// Set session path if not specified
	if cfg.Session.Path == "" {
		cfg.Session.Path = filepath.Join(cfg.DataDir, "session")
	}

	// Set logging file path if not specified
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "aphelion-agent.log")
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys missing from the file
func setDefaults(v *viper.Viper, cfg *Config) {
	for section, value := range cfg.Document() {
		values, ok := value.(map[string]interface{})
		if !ok {
			v.SetDefault(section, value)
			continue
		}
		for key, val := range values {
			v.SetDefault(section+"."+key, val)
		}
	}
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.min_version", "")
	v.SetDefault("agent.summary", "")
	v.SetDefault("agent.schedule", "")
	v.SetDefault("session.path", "")
}

// Watch calls onChange whenever the config file is rewritten. The callback
// receives either the reloaded config or the error that prevented loading it.
func (l *Loader) Watch(onChange func(cfg *Config, err error)) error {
	if l.v == nil {
		return fmt.Errorf("config must be loaded before it can be watched")
	}
	if _, err := os.Stat(l.GetConfigPath()); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := ValidateFile(l.GetConfigPath()); err != nil {
			onChange(nil, err)
			return
		}
		cfg, err := l.decode()
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			onChange(nil, err)
			return
		}
		onChange(cfg, nil)
	})
	l.v.WatchConfig()

	return nil
}

// Save writes the configuration as YAML
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg.Document())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// The file may hold the gateway token
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	return filepath.Join(DefaultDir, DefaultFileName)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
