package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Loop drives cycles forever until its context is cancelled
type Loop struct {
	executor     CycleRunner
	pacer        Pacer
	errorBackoff time.Duration
	cycleTimeout time.Duration
	maxCycles    int
	sessionID    string
	sleep        SleepFunc
	now          Clock
	recorder     Recorder
	logger       zerolog.Logger

	cycles int
}

// LoopConfig holds loop configuration
type LoopConfig struct {
	Executor     CycleRunner
	Pacer        Pacer         // Optional, defaults to FixedPacer{DefaultPacingInterval}
	ErrorBackoff time.Duration // Optional, defaults to DefaultErrorBackoff
	CycleTimeout time.Duration // Optional, defaults to DefaultCycleTimeout; negative disables
	MaxCycles    int           // Optional, 0 runs until cancelled
	SessionID    string
	Sleep        SleepFunc
	Clock        Clock
	Recorder     Recorder
	Logger       zerolog.Logger
}

// NewLoop creates a new agent loop
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Executor == nil {
		return nil, errors.New("cycle executor is required")
	}
	if cfg.MaxCycles < 0 {
		return nil, fmt.Errorf("invalid max cycles: %d", cfg.MaxCycles)
	}

	l := &Loop{
		executor:     cfg.Executor,
		pacer:        cfg.Pacer,
		errorBackoff: cfg.ErrorBackoff,
		cycleTimeout: cfg.CycleTimeout,
		maxCycles:    cfg.MaxCycles,
		sessionID:    cfg.SessionID,
		sleep:        cfg.Sleep,
		now:          cfg.Clock,
		recorder:     cfg.Recorder,
		logger:       cfg.Logger,
	}
	if l.pacer == nil {
		l.pacer = FixedPacer{Interval: DefaultPacingInterval}
	}
	if l.errorBackoff <= 0 {
		l.errorBackoff = DefaultErrorBackoff
	}
	if l.cycleTimeout == 0 {
		l.cycleTimeout = DefaultCycleTimeout
	}
	if l.sleep == nil {
		l.sleep = SleepContext
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.recorder == nil {
		l.recorder = nopRecorder{}
	}

	return l, nil
}

// Cycles returns the number of cycles started so far
func (l *Loop) Cycles() int {
	return l.cycles
}

// Run executes cycles until ctx is cancelled (or MaxCycles is reached).
// Errors are logged, never returned; the error result is always nil.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().
		Str("session_id", l.sessionID).
		Dur("error_backoff", l.errorBackoff).
		Msg("Starting Aphelion agent")

	for {
		if ctx.Err() != nil {
			l.stopped()
			return nil
		}

		wait := l.step(ctx)

		if l.maxCycles > 0 && l.cycles >= l.maxCycles {
			l.logger.Info().Int("cycles", l.cycles).Msg("Cycle limit reached, agent stopping")
			return nil
		}

		l.logger.Debug().Dur("wait", wait).Msg("Waiting for next cycle")
		if err := l.sleep(ctx, wait); err != nil {
			l.stopped()
			return nil
		}
	}
}

// step runs one cycle and returns how long to wait before the next one
func (l *Loop) step(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			l.unexpected(&LoopError{Err: fmt.Errorf("panic: %v", r)})
			wait = l.errorBackoff
		}
	}()

	if err := l.runCycle(ctx); err != nil {
		var cycleErr *CycleError
		if !errors.As(err, &cycleErr) {
			l.unexpected(&LoopError{Err: err})
			return l.errorBackoff
		}
		l.logger.Error().
			Err(cycleErr.Err).
			Str("step", string(cycleErr.Step)).
			Str("error_kind", "cycle").
			Msg("Error in agent cycle")
	}

	next, err := l.pacer.Next(l.now())
	if err != nil {
		l.unexpected(&LoopError{Err: fmt.Errorf("pacing: %w", err)})
		return l.errorBackoff
	}
	return next
}

// runCycle shields the cycle from loop cancellation so an interrupt never lands mid-cycle
func (l *Loop) runCycle(ctx context.Context) error {
	l.cycles++

	cycleCtx := context.WithoutCancel(ctx)
	if l.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(cycleCtx, l.cycleTimeout)
		defer cancel()
	}

	result, err := l.executor.RunCycle(cycleCtx)
	if err != nil && result.Err == nil {
		result.Err = err
	}
	l.recorder.RecordCycle(result)
	return err
}

func (l *Loop) unexpected(err error) {
	l.recorder.RecordUnexpected()
	l.logger.Error().
		Err(err).
		Str("error_kind", "unexpected").
		Dur("backoff", l.errorBackoff).
		Msg("Unexpected error in agent loop")
}

func (l *Loop) stopped() {
	l.logger.Info().Int("cycles", l.cycles).Msg("Agent stopped")
}
