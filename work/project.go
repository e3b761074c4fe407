package work

// SchedulingMode controls how the day runner spreads tasks over simulated time.
type SchedulingMode string

const (
	// SchedulingSameDay runs every ready task within the current simulated day.
	SchedulingSameDay SchedulingMode = "same_day"
	// SchedulingDistributed honors each task's scheduled start date.
	SchedulingDistributed SchedulingMode = "distributed"
	// SchedulingCompressed ignores scheduled starts and runs tasks as soon as
	// dependencies allow.
	SchedulingCompressed SchedulingMode = "compressed"
)

// ExecutionMode controls how much human oversight the run requires.
type ExecutionMode string

const (
	// ExecutionAutomated runs without operator checkpoints.
	ExecutionAutomated ExecutionMode = "automated"
	// ExecutionCheckpointed pauses via the interrupt controller after each
	// task completes.
	ExecutionCheckpointed ExecutionMode = "checkpointed"
	// ExecutionSimulated is a dry run against the mock generator.
	ExecutionSimulated ExecutionMode = "simulated"
)

// Project is the root aggregate: a named collection of tasks and agent
// profiles plus its scheduling and execution modes. It is loaded once and
// mutated only through Task and AgentProfile updates made by the Scheduler.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	SchedulingMode SchedulingMode `json:"scheduling_mode"`
	ExecutionMode  ExecutionMode  `json:"execution_mode"`

	Agents   []*AgentProfile `json:"agents"`
	Tasks    []*Task         `json:"tasks"`
	Calendar []CalendarEntry `json:"calendar,omitempty"`
}

// State is the serializable point-in-time capture of a project: every agent
// profile, every task (live and template) and the calendar, keyed by simulated
// date. Restoring a State and immediately re-exporting must yield an equal
// State.
type State struct {
	ProjectID string          `json:"project_id"`
	Date      string          `json:"date"`
	Agents    []AgentProfile  `json:"agents"`
	Tasks     []Task          `json:"tasks"`
	TaskOrder []string        `json:"task_order"`
	Templates []Task          `json:"templates,omitempty"`
	Calendar  []CalendarEntry `json:"calendar,omitempty"`

	SchedulingMode SchedulingMode `json:"scheduling_mode,omitempty"`
	ExecutionMode  ExecutionMode  `json:"execution_mode,omitempty"`
}
