package agent

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Pacer decides how long the loop waits after a cycle
type Pacer interface {
	Next(now time.Time) (time.Duration, error)
}

// FixedPacer waits the same interval after every cycle
type FixedPacer struct {
	Interval time.Duration
}

// Next returns the fixed interval, or DefaultPacingInterval when unset
func (p FixedPacer) Next(now time.Time) (time.Duration, error) {
	if p.Interval <= 0 {
		return DefaultPacingInterval, nil
	}
	return p.Interval, nil
}

// CronPacer waits until the next tick of a standard 5-field cron expression
type CronPacer struct {
	expr     string
	schedule cron.Schedule
}

// NewCronPacer parses expr (e.g. "*/10 * * * *"); descriptors like "@hourly" are accepted
func NewCronPacer(expr string) (*CronPacer, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return &CronPacer{expr: expr, schedule: schedule}, nil
}

// Next returns the wait until the next scheduled tick after now
func (p *CronPacer) Next(now time.Time) (time.Duration, error) {
	next := p.schedule.Next(now)
	if next.IsZero() {
		return 0, fmt.Errorf("cron expression %q has no upcoming run", p.expr)
	}
	return next.Sub(now), nil
}

// String returns the cron expression
func (p *CronPacer) String() string {
	return p.expr
}

// NewPacer returns a CronPacer when schedule is set, otherwise a FixedPacer
func NewPacer(schedule string, interval time.Duration) (Pacer, error) {
	if schedule != "" {
		return NewCronPacer(schedule)
	}
	return FixedPacer{Interval: interval}, nil
}
