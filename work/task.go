package work

import (
	"fmt"
	"time"
)

// TaskState is the finite lifecycle state of a Task.
type TaskState string

const (
	// TaskCreated is the initial state of every task.
	TaskCreated TaskState = "created"
	// TaskReady means all hard dependencies are completed.
	TaskReady TaskState = "ready"
	// TaskAssigned means an agent owns the task but has not started.
	TaskAssigned TaskState = "assigned"
	// TaskInProgress means the task is actively being worked.
	TaskInProgress TaskState = "in_progress"
	// TaskCompleted is terminal; completed tasks are immutable.
	TaskCompleted TaskState = "completed"
	// TaskBlocked is a recoverable hold; the task may return to ready or
	// resume in progress once the blocking condition clears.
	TaskBlocked TaskState = "blocked"
	// TaskFailed is terminal and requires external re-creation.
	TaskFailed TaskState = "failed"
)

// transitions encodes the legal state machine. Transitions are monotonic
// except for the blocked recovery edges.
var transitions = map[TaskState][]TaskState{
	TaskCreated:    {TaskReady},
	TaskReady:      {TaskAssigned},
	TaskAssigned:   {TaskInProgress, TaskBlocked},
	TaskInProgress: {TaskCompleted, TaskBlocked, TaskFailed},
	TaskBlocked:    {TaskReady, TaskInProgress},
}

// CanTransition reports whether moving from s to the given state is legal.
func (s TaskState) CanTransition(to TaskState) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool { return len(transitions[s]) == 0 }

// TaskPriority is an ordered urgency scale; higher values schedule first.
type TaskPriority int

const (
	// PriorityMinor is the lowest priority.
	PriorityMinor TaskPriority = 1
	// PriorityLow is below-default priority.
	PriorityLow TaskPriority = 2
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = 3
	// PriorityHigh is above-default priority.
	PriorityHigh TaskPriority = 4
	// PriorityCritical schedules before everything else.
	PriorityCritical TaskPriority = 5
)

// Task is a unit of work, possibly a multi-party meeting, tracked through a
// finite lifecycle. Tasks are owned exclusively by the Scheduler and become
// immutable once completed.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Type categorizes the task for preference-affinity scoring
	// ("meeting", "design", "review", ...).
	Type string `json:"type,omitempty"`

	Priority TaskPriority `json:"priority"`

	// RequiredSkills maps skill name to the minimum proficiency (0-10) an
	// agent must hold to be an assignment candidate. The minimum also acts as
	// the skill's weight in the assignment score.
	RequiredSkills map[string]int `json:"required_skills,omitempty"`

	EstimatedHours float64   `json:"estimated_hours"`
	ScheduledStart time.Time `json:"scheduled_start,omitempty"`

	// DependsOn lists predecessor task IDs that must be completed before this
	// task may become ready.
	DependsOn []string `json:"depends_on,omitempty"`

	// Spawns lists follow-up task IDs instantiated when this task completes.
	Spawns []string `json:"spawns,omitempty"`

	// Attendees names the required participants for meeting-style tasks.
	// A task with attendees runs as a broadcast meeting; without, as solo work.
	Attendees []string `json:"attendees,omitempty"`

	// Lead names the participant whose conclude action ends the task early.
	Lead string `json:"lead,omitempty"`

	// RoundBudget bounds the number of rounds the turn runtime will run for
	// this task. Zero falls back to the runtime default.
	RoundBudget int `json:"round_budget,omitempty"`

	State         TaskState `json:"state"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
	BlockedSince  time.Time `json:"blocked_since,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

// Meeting reports whether the task runs as a multi-party broadcast session.
func (t *Task) Meeting() bool { return len(t.Attendees) > 0 }

// DependenciesMet reports whether every predecessor appears in the completed set.
func (t *Task) DependenciesMet(completed map[string]bool) bool {
	for _, dep := range t.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// transition moves the task to the given state or fails if the edge is not in
// the state machine. Only the Scheduler calls this.
func (t *Task) transition(to TaskState) error {
	if t.State == TaskCompleted {
		return fmt.Errorf("task %s is completed and immutable", t.ID)
	}
	if !t.State.CanTransition(to) {
		return fmt.Errorf("illegal task transition %s: %s -> %s", t.ID, t.State, to)
	}
	t.State = to
	return nil
}

// Clone returns a deep copy safe for independent mutation.
func (t *Task) Clone() *Task {
	c := *t
	c.RequiredSkills = make(map[string]int, len(t.RequiredSkills))
	for k, v := range t.RequiredSkills {
		c.RequiredSkills[k] = v
	}
	c.DependsOn = append([]string(nil), t.DependsOn...)
	c.Spawns = append([]string(nil), t.Spawns...)
	c.Attendees = append([]string(nil), t.Attendees...)
	return &c
}
