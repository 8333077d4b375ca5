package agent

import "fmt"

// Step names a collaborator call within a cycle
type Step string

const (
	StepSearch     Step = "search"
	StepExecute    Step = "execute"
	StepCheckpoint Step = "checkpoint"
)

// CycleError is a collaborator failure inside a cycle. The loop treats it as transient.
type CycleError struct {
	Step Step
	Err  error
}

// Error implements the error interface
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s failed: %v", e.Step, e.Err)
}

// Unwrap returns the collaborator error
func (e *CycleError) Unwrap() error {
	return e.Err
}

// LoopError is an error raised by the loop's own driving logic rather than a cycle step
type LoopError struct {
	Err error
}

// Error implements the error interface
func (e *LoopError) Error() string {
	return fmt.Sprintf("unexpected loop error: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *LoopError) Unwrap() error {
	return e.Err
}
