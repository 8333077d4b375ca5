package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Defaults shared by DefaultConfig and the init scaffold
const (
	DefaultDir       = ".aphelion"
	DefaultFileName  = "config.yaml"
	DefaultAPIURL    = "https://api.aphelion.exmplr.ai"
	DefaultQuery     = "Multiple Sclerosis"
	DefaultTool      = "exmplr_core.search"
	DefaultMetrics   = "127.0.0.1:9464"
	TokenEnvVariable = "APHELION_TOKEN"
)

// Config represents the agent configuration
type Config struct {
	// Gateway connection
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Run loop
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Memory checkpoints
	Checkpoint CheckpointConfig `json:"checkpoint" mapstructure:"checkpoint"`

	// Session slot
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// OpenTelemetry spans per cycle
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Data directory (PID file, default log and session locations)
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// GatewayConfig holds the remote gateway connection settings
type GatewayConfig struct {
	APIURL     string        `json:"api_url" mapstructure:"api_url"`
	Token      string        `json:"-" mapstructure:"token"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	RateLimit  float64       `json:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst      int           `json:"burst" mapstructure:"burst"`
	MinVersion string        `json:"min_version" mapstructure:"min_version"` // semver constraint checked by ping
}

// AgentConfig holds run loop settings
type AgentConfig struct {
	Query          string                 `json:"query" mapstructure:"query"`
	Tool           string                 `json:"tool" mapstructure:"tool"`
	ToolParams     map[string]interface{} `json:"tool_params" mapstructure:"tool_params"`
	Summary        string                 `json:"summary" mapstructure:"summary"`
	PacingInterval time.Duration          `json:"pacing_interval" mapstructure:"pacing_interval"`
	ErrorBackoff   time.Duration          `json:"error_backoff" mapstructure:"error_backoff"`
	Schedule       string                 `json:"schedule" mapstructure:"schedule"` // cron expression, overrides pacing_interval
	CycleTimeout   time.Duration          `json:"cycle_timeout" mapstructure:"cycle_timeout"`
}

// CheckpointConfig holds memory checkpoint settings
type CheckpointConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	RecordOn string        `json:"record_on" mapstructure:"record_on"` // success, attempt
}

// SessionConfig holds session slot settings
type SessionConfig struct {
	Path               string   `json:"path" mapstructure:"path"`
	RemoteCreate       bool     `json:"remote_create" mapstructure:"remote_create"`
	SubscribedServices []string `json:"subscribed_services" mapstructure:"subscribed_services"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// TracingConfig holds OpenTelemetry settings. Without an endpoint spans stay
// in-process and only their trace ids reach the logs.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	Endpoint    string  `json:"endpoint" mapstructure:"endpoint"` // OTLP/HTTP host:port
	Insecure    bool    `json:"insecure" mapstructure:"insecure"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			APIURL:  DefaultAPIURL,
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Agent: AgentConfig{
			Query:          DefaultQuery,
			Tool:           DefaultTool,
			ToolParams:     map[string]interface{}{"q": DefaultQuery},
			PacingInterval: 10 * time.Minute,
			ErrorBackoff:   time.Minute,
			CycleTimeout:   5 * time.Minute,
		},
		Checkpoint: CheckpointConfig{
			Interval: 10 * time.Minute,
			RecordOn: "success",
		},
		Session: SessionConfig{
			SubscribedServices: []string{},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: DefaultMetrics,
		},
		Tracing: TracingConfig{
			SampleRatio: 1,
		},
		DataDir: DefaultDir,
	}
}

// String returns a JSON representation of the config. The gateway token is never included.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}

// Document returns the config as a plain document with durations rendered as
// strings, the shape written by Save and accepted by the schema.
func (c *Config) Document() map[string]interface{} {
	params := c.Agent.ToolParams
	if params == nil {
		params = map[string]interface{}{}
	}
	services := c.Session.SubscribedServices
	if services == nil {
		services = []string{}
	}

	gateway := map[string]interface{}{
		"api_url":    c.Gateway.APIURL,
		"timeout":    c.Gateway.Timeout.String(),
		"rate_limit": c.Gateway.RateLimit,
		"burst":      c.Gateway.Burst,
	}
	if c.Gateway.Token != "" {
		gateway["token"] = c.Gateway.Token
	}
	if c.Gateway.MinVersion != "" {
		gateway["min_version"] = c.Gateway.MinVersion
	}

	agent := map[string]interface{}{
		"query":           c.Agent.Query,
		"tool":            c.Agent.Tool,
		"tool_params":     params,
		"pacing_interval": c.Agent.PacingInterval.String(),
		"error_backoff":   c.Agent.ErrorBackoff.String(),
		"cycle_timeout":   c.Agent.CycleTimeout.String(),
	}
	if c.Agent.Summary != "" {
		agent["summary"] = c.Agent.Summary
	}
	if c.Agent.Schedule != "" {
		agent["schedule"] = c.Agent.Schedule
	}

	session := map[string]interface{}{
		"remote_create":       c.Session.RemoteCreate,
		"subscribed_services": services,
	}
	if c.Session.Path != "" {
		session["path"] = c.Session.Path
	}

	return map[string]interface{}{
		"gateway": gateway,
		"agent":   agent,
		"checkpoint": map[string]interface{}{
			"interval":  c.Checkpoint.Interval.String(),
			"record_on": c.Checkpoint.RecordOn,
		},
		"session": session,
		"logging": map[string]interface{}{
			"level":     c.Logging.Level,
			"file":      c.Logging.File,
			"pretty":    c.Logging.Pretty,
			"max_size":  c.Logging.MaxSize,
			"max_age":   c.Logging.MaxAge,
			"compress":  c.Logging.Compress,
			"redaction": c.Logging.Redaction,
		},
		"metrics": map[string]interface{}{
			"enabled": c.Metrics.Enabled,
			"address": c.Metrics.Address,
		},
		"tracing": map[string]interface{}{
			"enabled":      c.Tracing.Enabled,
			"endpoint":     c.Tracing.Endpoint,
			"insecure":     c.Tracing.Insecure,
			"sample_ratio": c.Tracing.SampleRatio,
		},
		"data_dir": c.DataDir,
	}
}
