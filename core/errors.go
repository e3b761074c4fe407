package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQueueSaturated is returned by the bus when the per-round in-flight
	// ceiling has been reached. Publishers should treat it as retryable on the
	// next round.
	ErrQueueSaturated = errors.New("event queue saturated")

	// ErrInterruptUnavailable indicates that no interrupt side channel could
	// be attached. The controller degrades to a no-op; execution proceeds as
	// if no interrupt capability existed.
	ErrInterruptUnavailable = errors.New("interrupt channel unavailable")
)

// NoResponseError reports that a participant's behavior call timed out or
// failed during a round. It is recoverable: the participant is skipped for the
// remainder of the round, not the task.
type NoResponseError struct {
	Participant string
	Round       int
	Err         error
}

// Error implements the error interface.
func (e *NoResponseError) Error() string {
	return fmt.Sprintf("no response from %s in round %d: %v", e.Participant, e.Round, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As inspection.
func (e *NoResponseError) Unwrap() error { return e.Err }

// UnsatisfiableError reports that no registered agent meets a task's required
// skill minimums. The task is left ready and surfaced through the scheduler's
// report, never silently dropped.
type UnsatisfiableError struct {
	TaskID string
	Reason string
}

// Error implements the error interface.
func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("no candidate for task %s: %s", e.TaskID, e.Reason)
}

// CycleError reports a dependency cycle detected at project load time. It is
// fatal: the project is rejected.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// RestoreConflictError reports that an identity being restored already exists
// in the registry. The conflict is recovered by overwriting the live identity
// with the restored value; the error is logged, not propagated.
type RestoreConflictError struct {
	AgentID string
}

// Error implements the error interface.
func (e *RestoreConflictError) Error() string {
	return fmt.Sprintf("restore conflict: agent %s already registered", e.AgentID)
}
