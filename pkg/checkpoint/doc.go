// Package checkpoint decides when accumulated working memory should be saved back to the gateway.
//
// Invariants:
// - A checkpoint is due only when strictly more than the interval has elapsed.
// - Record is the only mutator of the last checkpoint time.
//
// Usage:
//
//	sched := checkpoint.NewScheduler(10*time.Minute, time.Now())
//	if sched.Due(time.Now()) {
//		// save memory, then
//		sched.Record(time.Now())
//	}
package checkpoint
