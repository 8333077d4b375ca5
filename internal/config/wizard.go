package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard reading answers from in
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== Aphelion Agent Configuration ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	// Gateway
	for {
		url, err := w.ask("Gateway URL", cfg.Gateway.APIURL)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateAPIURL(url); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Gateway.APIURL = url
		break
	}

	fmt.Fprintf(w.out, "Gateway token (press Enter to use $%s): ", TokenEnvVariable)
	token, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if token != "" {
		if err := validator.ValidateToken(token); err != nil {
			return nil, err
		}
		cfg.Gateway.Token = token
	}

	fmt.Fprintln(w.out)

	// Agent
	query, err := w.ask("Research query", cfg.Agent.Query)
	if err != nil {
		return nil, err
	}
	cfg.Agent.Query = query
	cfg.Agent.ToolParams = map[string]interface{}{"q": query}

	tool, err := w.ask("Tool", cfg.Agent.Tool)
	if err != nil {
		return nil, err
	}
	cfg.Agent.Tool = tool

	schedule, err := w.ask("Cron schedule (empty for fixed interval)", "")
	if err != nil {
		return nil, err
	}
	if schedule != "" {
		if err := validator.ValidateSchedule(schedule); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using fixed interval\n", err)
		} else {
			cfg.Agent.Schedule = schedule
		}
	}

	fmt.Fprintln(w.out)

	// Log Level
	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

// ask prints a prompt and returns the answer, or def when the answer is empty
func (w *Wizard) ask(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}
	answer, err := w.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
