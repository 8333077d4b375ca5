package checkpoint

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInterval is the checkpoint cadence used when none is configured
const DefaultInterval = 10 * time.Minute

// RecordPolicy controls when a checkpoint attempt advances the last checkpoint time
type RecordPolicy string

const (
	// RecordOnSuccess advances the checkpoint time only after the gateway accepted the save
	RecordOnSuccess RecordPolicy = "success"
	// RecordOnAttempt advances the checkpoint time whenever a save was attempted
	RecordOnAttempt RecordPolicy = "attempt"
)

// ParseRecordPolicy parses a record policy name; empty means RecordOnSuccess
func ParseRecordPolicy(s string) (RecordPolicy, error) {
	switch RecordPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RecordOnSuccess:
		return RecordOnSuccess, nil
	case RecordOnAttempt:
		return RecordOnAttempt, nil
	default:
		return "", fmt.Errorf("unknown checkpoint record policy: %q (must be: success, attempt)", s)
	}
}

// ShouldRecord reports whether a save that finished with saveErr advances the checkpoint
func (p RecordPolicy) ShouldRecord(saveErr error) bool {
	if p == RecordOnAttempt {
		return true
	}
	return saveErr == nil
}

// IsDue reports whether a checkpoint is due. Elapsed time equal to the interval is not due.
func IsDue(now, last time.Time, interval time.Duration) bool {
	return now.Sub(last) > interval
}

// State is the checkpoint state owned by a Scheduler
type State struct {
	LastCheckpoint time.Time `json:"last_checkpoint"`
}

// Scheduler tracks the last checkpoint time against a fixed interval.
// It is not safe for concurrent use; the agent loop owns it exclusively.
type Scheduler struct {
	interval time.Duration
	state    State
}

// NewScheduler creates a scheduler whose last checkpoint is start.
// A non-positive interval falls back to DefaultInterval.
func NewScheduler(interval time.Duration, start time.Time) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		state:    State{LastCheckpoint: start},
	}
}

// Due reports whether a checkpoint is due at now
func (s *Scheduler) Due(now time.Time) bool {
	return IsDue(now, s.state.LastCheckpoint, s.interval)
}

// Record marks now as the last checkpoint time and returns the new state
func (s *Scheduler) Record(now time.Time) State {
	s.state.LastCheckpoint = now
	return s.state
}

// Last returns the last checkpoint time
func (s *Scheduler) Last() time.Time {
	return s.state.LastCheckpoint
}

// Interval returns the checkpoint interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// NextDue returns the earliest instant at which Due reports true
func (s *Scheduler) NextDue() time.Time {
	return s.state.LastCheckpoint.Add(s.interval).Add(time.Nanosecond)
}
