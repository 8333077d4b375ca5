package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/harun/aphelion/internal/logger"
	"github.com/harun/aphelion/pkg/agent"
	"github.com/harun/aphelion/pkg/checkpoint"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIURL validates the gateway base URL
func (v *Validator) ValidateAPIURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("gateway api_url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid gateway api_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid gateway api_url scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("gateway api_url has no host")
	}
	return nil
}

// ValidateToken validates a gateway bearer token
func (v *Validator) ValidateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("gateway token is required (set gateway.token or %s)", TokenEnvVariable)
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("gateway token must not contain whitespace")
	}
	return nil
}

// ValidateVersionConstraint validates a semver constraint such as ">= 1.2, < 2"
func (v *Validator) ValidateVersionConstraint(constraint string) error {
	if constraint == "" {
		return nil
	}
	if _, err := semver.NewConstraint(constraint); err != nil {
		return fmt.Errorf("invalid gateway min_version %q: %w", constraint, err)
	}
	return nil
}

// ValidatePositive validates that a duration is greater than zero
func (v *Validator) ValidatePositive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}

// ValidateSchedule validates a cron expression
func (v *Validator) ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := agent.NewCronPacer(expr); err != nil {
		return fmt.Errorf("agent schedule: %w", err)
	}
	return nil
}

// ValidateRecordPolicy validates the checkpoint record policy
func (v *Validator) ValidateRecordPolicy(policy string) error {
	_, err := checkpoint.ParseRecordPolicy(policy)
	return err
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	_, err := logger.ParseLevel(level)
	return err
}

// ValidateConfig performs comprehensive validation and reports every problem found
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error
	add := func(err error) {
		if err != nil {
			errors = append(errors, err)
		}
	}

	// Gateway
	add(v.ValidateAPIURL(cfg.Gateway.APIURL))
	add(v.ValidatePositive("gateway timeout", cfg.Gateway.Timeout))
	if cfg.Gateway.RateLimit < 0 {
		add(fmt.Errorf("gateway rate_limit must be >= 0"))
	}
	if cfg.Gateway.Burst < 0 {
		add(fmt.Errorf("gateway burst must be >= 0"))
	}
	add(v.ValidateVersionConstraint(cfg.Gateway.MinVersion))

	// Agent
	if strings.TrimSpace(cfg.Agent.Query) == "" {
		add(fmt.Errorf("agent query is required"))
	}
	if strings.TrimSpace(cfg.Agent.Tool) == "" {
		add(fmt.Errorf("agent tool is required"))
	}
	add(v.ValidatePositive("agent pacing_interval", cfg.Agent.PacingInterval))
	add(v.ValidatePositive("agent error_backoff", cfg.Agent.ErrorBackoff))
	if cfg.Agent.CycleTimeout < 0 {
		add(fmt.Errorf("agent cycle_timeout must be >= 0"))
	}
	add(v.ValidateSchedule(cfg.Agent.Schedule))

	// Checkpoint
	add(v.ValidatePositive("checkpoint interval", cfg.Checkpoint.Interval))
	add(v.ValidateRecordPolicy(cfg.Checkpoint.RecordOn))

	// Logging
	add(v.ValidateLogLevel(cfg.Logging.Level))
	if cfg.Logging.MaxSize < 0 || cfg.Logging.MaxAge < 0 {
		add(fmt.Errorf("logging max_size and max_age must be >= 0"))
	}

	// Metrics
	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		add(fmt.Errorf("metrics address is required when metrics are enabled"))
	}

	// Tracing
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		add(fmt.Errorf("tracing sample_ratio must be between 0 and 1"))
	}

	return errors
}
