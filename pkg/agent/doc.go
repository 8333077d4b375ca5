// Package agent drives the long-running agent: one cycle searches for tools, runs the
// designated tool when any are found and checkpoints memory when due; the loop repeats
// cycles forever, isolating failures.
//
// Invariants:
// - Cycles run strictly one at a time on a single goroutine.
// - A cycle error never stops the loop; it waits the normal pacing interval.
// - An unexpected loop error (panic, unclassified error, pacing failure) waits the shorter back-off.
// - Cancellation of the loop context is honored between cycles, never inside one.
//
// Usage:
//
//	exec, _ := agent.NewExecutor(agent.ExecutorConfig{Gateway: client, Scheduler: sched, ...})
//	loop, _ := agent.NewLoop(agent.LoopConfig{Executor: exec, Pacer: agent.FixedPacer{Interval: 10 * time.Minute}})
//	_ = loop.Run(ctx)
package agent
