package agent

import (
	"context"
	"time"

	"github.com/harun/aphelion/pkg/gateway"
)

// Default intervals for the agent loop
const (
	DefaultPacingInterval = 10 * time.Minute
	DefaultErrorBackoff   = time.Minute
	DefaultCycleTimeout   = 5 * time.Minute
)

// Gateway is the part of the remote gateway the agent depends on
type Gateway interface {
	SearchTools(ctx context.Context, query string) (*gateway.SearchResult, error)
	RunTool(ctx context.Context, name string, params map[string]interface{}) (map[string]interface{}, error)
	SaveMemory(ctx context.Context, summary string, content map[string]interface{}) error
}

// CycleRunner runs a single cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (CycleResult, error)
}

// Recorder receives loop telemetry
type Recorder interface {
	RecordCycle(result CycleResult)
	RecordUnexpected()
}

// CycleResult describes the outcome of one cycle. It is never persisted.
type CycleResult struct {
	CycleID       string        `json:"cycle_id"`
	SessionID     string        `json:"session_id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	ToolsFound    int           `json:"tools_found"`
	ToolExecuted  bool          `json:"tool_executed"`
	CheckpointDue bool          `json:"checkpoint_due"`
	Checkpointed  bool          `json:"checkpointed"`
	Err           error         `json:"-"`
}

// Succeeded reports whether the cycle completed without error
func (r CycleResult) Succeeded() bool {
	return r.Err == nil
}

// Clock returns the current time
type Clock func() time.Time

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the latter case
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCycle(CycleResult) {}
func (nopRecorder) RecordUnexpected()       {}
