package daemon

import (
	"context"

	"github.com/harun/aphelion/pkg/agent"
)

// EventLoop runs the agent loop on behalf of the daemon
type EventLoop struct {
	daemon *Daemon
	loop   *agent.Loop
}

// NewEventLoop creates a new event loop around loop
func NewEventLoop(d *Daemon, loop *agent.Loop) *EventLoop {
	return &EventLoop{
		daemon: d,
		loop:   loop,
	}
}

// Run drives the agent loop until ctx is cancelled or the loop finishes on its own
func (e *EventLoop) Run(ctx context.Context) {
	e.daemon.log.Info().Msg("Event loop started")

	if err := e.loop.Run(ctx); err != nil {
		e.daemon.log.Error().Err(err).Msg("Agent loop exited with error")
	}

	e.daemon.log.Info().
		Int("cycles", e.loop.Cycles()).
		Msg("Event loop stopped")
}
