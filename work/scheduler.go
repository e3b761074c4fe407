package work

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/logging"
)

// Publisher is the slice of the event bus the scheduler needs to announce
// task and agent changes. A nil publisher disables announcements.
type Publisher interface {
	Publish(ev core.Event) error
}

// Config defines the scheduler's tuning parameters. All thresholds are
// explicit so tests can pin them.
type Config struct {
	// PreferenceWeight scales the task-type affinity bonus in the
	// assignment score.
	PreferenceWeight float64

	// WorkloadPenalty is subtracted per hour of current workload, making the
	// penalty monotonically increasing in load.
	WorkloadPenalty float64

	// OverloadThreshold is the workload (hours) beyond which an assignee's
	// pending tasks are re-offered during the escalation sweep.
	OverloadThreshold float64

	// EscalationAge is how long a task may stay blocked before the sweep
	// re-offers it.
	EscalationAge time.Duration

	// SkillGrowth is the proficiency increment applied to each required skill
	// of a task when its assignee completes it.
	SkillGrowth int

	// Authority is the agent that receives escalated tasks when no regular
	// candidate qualifies. Empty disables the fallback.
	Authority string
}

// DefaultConfig provides explicit, test-friendly defaults.
var DefaultConfig = Config{
	PreferenceWeight:  5,
	WorkloadPenalty:   0.5,
	OverloadThreshold: 40,
	EscalationAge:     30 * time.Minute,
	SkillGrowth:       1,
}

// Options configures a Scheduler instance.
type Options struct {
	Config    Config
	Logger    logging.Logger
	Publisher Publisher
	// Now supplies the clock; override in tests for deterministic escalation.
	Now func() time.Time
}

// Assignment records one assignment decision for reporting.
type Assignment struct {
	TaskID  string
	AgentID string
	Score   float64
}

// Escalation records one escalation decision made by the sweep.
type Escalation struct {
	TaskID    string
	From      string
	To        string
	Authority bool
	Reason    string
}

// Scheduler owns the task graph and is the single writer of Task and
// AgentProfile state. All exported methods are safe for concurrent use, but
// the intended model is a single driving goroutine (the day runner).
type Scheduler struct {
	registry *Registry
	cfg      Config
	logger   logging.Logger
	pub      Publisher
	now      func() time.Time

	tasks     map[string]*Task
	order     []string
	templates map[string]*Task

	// unassignable tracks tasks that stayed ready because no candidate met
	// their minimums, keyed by task ID. Refreshed on every assignment pass.
	unassignable map[string]string
}

// NewScheduler constructs a Scheduler bound to the given registry.
func NewScheduler(registry *Registry, optFns ...func(o *Options)) *Scheduler {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		// UTC wall-clock times survive a serialization round trip unchanged.
		Now: func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scheduler{
		registry:     registry,
		cfg:          opts.Config,
		logger:       opts.Logger,
		pub:          opts.Publisher,
		now:          opts.Now,
		tasks:        make(map[string]*Task),
		templates:    make(map[string]*Task),
		unassignable: make(map[string]string),
	}
}

// Registry returns the agent identity registry handle.
func (s *Scheduler) Registry() *Registry { return s.registry }

// Load installs a project's agents and tasks. Tasks referenced by another
// task's spawn list or by a calendar entry are held back as templates and
// instantiated on the parent's completion or the entry's day; everything else
// starts live in the created state.
func (s *Scheduler) Load(p *Project) error {
	for _, a := range p.Agents {
		if err := s.registry.Register(a); err != nil {
			return err
		}
	}

	dormant := make(map[string]bool)
	for _, t := range p.Tasks {
		for _, id := range t.Spawns {
			dormant[id] = true
		}
	}
	for _, e := range p.Calendar {
		dormant[e.TaskID] = true
	}

	for _, t := range p.Tasks {
		if dormant[t.ID] {
			s.templates[t.ID] = t
			continue
		}
		if err := s.AddTask(t); err != nil {
			return err
		}
	}
	return nil
}

// AddTask installs a live task in the created state.
func (s *Scheduler) AddTask(t *Task) error {
	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	if t.State == "" {
		t.State = TaskCreated
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return nil
}

// AddTemplate registers a dormant task definition available for spawning or
// calendar materialization.
func (s *Scheduler) AddTemplate(t *Task) { s.templates[t.ID] = t }

// Template returns the dormant definition for the id.
func (s *Scheduler) Template(id string) (*Task, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// Task returns the live task for the id.
func (s *Scheduler) Task(id string) (*Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

// Tasks returns live tasks in insertion order.
func (s *Scheduler) Tasks() []*Task {
	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// RefreshReady promotes created tasks whose hard dependencies are all
// completed, and returns the IDs promoted in insertion order. Tasks with
// unmet dependencies are never scheduling candidates.
func (s *Scheduler) RefreshReady() []string {
	completed := s.completedSet()
	var promoted []string
	for _, id := range s.order {
		t := s.tasks[id]
		if t.State != TaskCreated || !t.DependenciesMet(completed) {
			continue
		}
		if err := t.transition(TaskReady); err != nil {
			continue
		}
		promoted = append(promoted, id)
		s.announceTask(t, TaskCreated)
	}
	return promoted
}

// ReadyTasks returns ready tasks ordered by priority (highest first), ties by
// insertion order, which keeps repeated runs reproducible.
func (s *Scheduler) ReadyTasks() []*Task {
	var ready []*Task
	for _, id := range s.order {
		if t := s.tasks[id]; t.State == TaskReady {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Priority > ready[j].Priority
	})
	return ready
}

// Score computes the assignment score of an agent for a task:
// sum of (skill level x required minimum as weight) plus the preference
// affinity bonus minus the workload penalty.
func (s *Scheduler) Score(t *Task, p *AgentProfile) float64 {
	var score float64
	for skill, min := range t.RequiredSkills {
		score += float64(p.Skills[skill]) * float64(min)
	}
	if t.Type != "" {
		score += p.Preferences[t.Type] * s.cfg.PreferenceWeight
	}
	score -= p.WorkloadHours * s.cfg.WorkloadPenalty
	return score
}

// candidates returns the non-suspended agents meeting every skill minimum
// whose availability window covers the task's scheduled start, in
// registration order, excluding the listed identities. A task without a
// scheduled start can go to any window.
func (s *Scheduler) candidates(t *Task, exclude map[string]bool) []*AgentProfile {
	start := ""
	if !t.ScheduledStart.IsZero() {
		start = t.ScheduledStart.Format("15:04")
	}
	var out []*AgentProfile
	for _, p := range s.registry.List() {
		if p.Suspended || exclude[p.ID] {
			continue
		}
		if start != "" && !p.Availability.Contains(start) {
			continue
		}
		if p.MeetsMinimums(t.RequiredSkills) {
			out = append(out, p)
		}
	}
	return out
}

// pickBest selects the highest-scoring candidate. Ties break by lowest
// current workload, then by registration order.
func (s *Scheduler) pickBest(t *Task, cands []*AgentProfile) (*AgentProfile, float64) {
	var best *AgentProfile
	var bestScore float64
	for _, p := range cands {
		score := s.Score(t, p)
		switch {
		case best == nil,
			score > bestScore,
			score == bestScore && p.WorkloadHours < best.WorkloadHours,
			score == bestScore && p.WorkloadHours == best.WorkloadHours && p.Seq < best.Seq:
			best = p
			bestScore = score
		}
	}
	return best, bestScore
}

// AssignReady walks ready tasks in priority order and assigns each to its
// best candidate. Tasks without a qualifying candidate stay ready and are
// surfaced in the report rather than dropped.
func (s *Scheduler) AssignReady() []Assignment {
	var out []Assignment
	s.unassignable = make(map[string]string)
	for _, t := range s.ReadyTasks() {
		a, err := s.assign(t, nil)
		if err != nil {
			var unsat *core.UnsatisfiableError
			if errors.As(err, &unsat) {
				s.unassignable[t.ID] = unsat.Reason
				s.logger.Warn("task unassignable", "task_id", t.ID, "reason", unsat.Reason)
				continue
			}
			s.logger.Error("assignment failed", "task_id", t.ID, "error", err.Error())
			continue
		}
		out = append(out, *a)
	}
	return out
}

// assign moves a ready task to assigned on the best candidate, updating its
// workload.
func (s *Scheduler) assign(t *Task, exclude map[string]bool) (*Assignment, error) {
	cands := s.candidates(t, exclude)
	if len(cands) == 0 {
		return nil, &core.UnsatisfiableError{TaskID: t.ID, Reason: "no available agent meets required skill minimums"}
	}
	best, score := s.pickBest(t, cands)
	if err := t.transition(TaskAssigned); err != nil {
		return nil, err
	}
	t.AssignedTo = best.ID
	best.WorkloadHours += t.EstimatedHours
	s.announceTask(t, TaskReady)
	s.logger.Info("task assigned", "task_id", t.ID, "agent", best.ID, "score", score)
	return &Assignment{TaskID: t.ID, AgentID: best.ID, Score: score}, nil
}

// Start moves an assigned task to in progress.
func (s *Scheduler) Start(taskID string) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	from := t.State
	if err := t.transition(TaskInProgress); err != nil {
		return err
	}
	s.announceTask(t, from)
	return nil
}

// Complete finishes an in-progress task: the assignee's workload is released,
// its matching skills grow, and each task in the spawn list is instantiated
// as a created task inheriting the completed task's attendees, then evaluated
// for readiness.
func (s *Scheduler) Complete(taskID string) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	from := t.State
	if err := t.transition(TaskCompleted); err != nil {
		return err
	}
	t.CompletedAt = s.now()

	if p, ok := s.registry.Get(t.AssignedTo); ok {
		p.WorkloadHours -= t.EstimatedHours
		if p.WorkloadHours < 0 {
			p.WorkloadHours = 0
		}
		p.GrowSkills(t.RequiredSkills, s.cfg.SkillGrowth)
		s.announceAgent(p, "skill_growth")
	}
	s.announceTask(t, from)

	for _, id := range t.Spawns {
		s.spawn(id, t)
	}
	s.RefreshReady()
	return nil
}

// spawn instantiates a follow-up task from its template, inheriting the
// parent's attendees when the template names none.
func (s *Scheduler) spawn(id string, parent *Task) {
	tpl, ok := s.templates[id]
	if !ok {
		s.logger.Warn("spawn target unknown", "task_id", id, "parent", parent.ID)
		return
	}
	inst := tpl.Clone()
	inst.State = TaskCreated
	inst.CreatedAt = s.now()
	if len(inst.Attendees) == 0 {
		inst.Attendees = append([]string(nil), parent.Attendees...)
	}
	delete(s.templates, id)
	if err := s.AddTask(inst); err != nil {
		s.logger.Error("spawn failed", "task_id", id, "error", err.Error())
		return
	}
	s.logger.Info("task spawned", "task_id", id, "parent", parent.ID)
}

// Materialize instantiates a calendar entry's task template for the given
// simulated day. Recurring entries get a per-day instance ID so successive
// days never collide.
func (s *Scheduler) Materialize(e CalendarEntry, day time.Time) (*Task, error) {
	tpl, ok := s.templates[e.TaskID]
	if !ok {
		return nil, fmt.Errorf("calendar entry %s references unknown task %s", e.ID, e.TaskID)
	}
	inst := tpl.Clone()
	if e.Recurrence != RecurrenceNone {
		inst.ID = fmt.Sprintf("%s@%s", tpl.ID, day.Format(DateLayout))
	} else {
		delete(s.templates, e.TaskID)
	}
	inst.State = TaskCreated
	inst.CreatedAt = s.now()
	inst.ScheduledStart = day
	if err := s.AddTask(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Block marks a task blocked, releasing its assignee's workload for the hold.
// The assignee is kept so the task can resume manually later.
func (s *Scheduler) Block(taskID, reason string) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	from := t.State
	if err := t.transition(TaskBlocked); err != nil {
		return err
	}
	t.BlockedReason = reason
	t.BlockedSince = s.now()
	s.releaseWorkload(t)
	s.announceTask(t, from)
	return nil
}

// Resume returns a blocked task directly to in progress with its previous
// assignee, restoring the workload accounting.
func (s *Scheduler) Resume(taskID string) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	if t.AssignedTo == "" {
		return fmt.Errorf("task %s has no assignee to resume with", taskID)
	}
	from := t.State
	if err := t.transition(TaskInProgress); err != nil {
		return err
	}
	t.BlockedReason = ""
	t.BlockedSince = time.Time{}
	if p, ok := s.registry.Get(t.AssignedTo); ok {
		p.WorkloadHours += t.EstimatedHours
	}
	s.announceTask(t, from)
	return nil
}

// Unblock returns a blocked task to the ready pool, clearing its assignee.
func (s *Scheduler) Unblock(taskID string) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	from := t.State
	if err := t.transition(TaskReady); err != nil {
		return err
	}
	t.BlockedReason = ""
	t.BlockedSince = time.Time{}
	t.AssignedTo = ""
	s.announceTask(t, from)
	return nil
}

// Fail marks a task failed (terminal) and releases its assignee's workload.
func (s *Scheduler) Fail(taskID string) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	from := t.State
	if err := t.transition(TaskFailed); err != nil {
		return err
	}
	s.releaseWorkload(t)
	s.announceTask(t, from)
	return nil
}

// EscalateStale sweeps for tasks blocked beyond the escalation age and for
// assigned tasks whose assignee is overloaded, re-offering each to the
// next-highest-scoring candidate. When no regular candidate qualifies the
// task goes to the configured authority agent.
func (s *Scheduler) EscalateStale() []Escalation {
	var out []Escalation
	now := s.now()

	for _, id := range s.order {
		t := s.tasks[id]
		switch t.State {
		case TaskBlocked:
			if t.BlockedSince.IsZero() || now.Sub(t.BlockedSince) < s.cfg.EscalationAge {
				continue
			}
			out = append(out, s.reoffer(t, fmt.Sprintf("blocked for %s", now.Sub(t.BlockedSince).Truncate(time.Second))))
		case TaskAssigned:
			p, ok := s.registry.Get(t.AssignedTo)
			if !ok || p.WorkloadHours <= s.cfg.OverloadThreshold {
				continue
			}
			out = append(out, s.reoffer(t, fmt.Sprintf("assignee %s overloaded (%.1fh)", p.ID, p.WorkloadHours)))
		}
	}
	return out
}

// reoffer moves the task back to ready and assigns it to the best candidate
// other than the previous assignee, falling back to the authority agent.
func (s *Scheduler) reoffer(t *Task, reason string) Escalation {
	prev := t.AssignedTo
	esc := Escalation{TaskID: t.ID, From: prev, Reason: reason}

	if t.State == TaskAssigned {
		// Withdrawing an unstarted offer is not a lifecycle transition; the
		// task never left the ready pool from the assignee's point of view.
		s.releaseWorkload(t)
		t.State = TaskReady
		t.AssignedTo = ""
	} else if err := s.Unblock(t.ID); err != nil {
		s.logger.Error("escalation unblock failed", "task_id", t.ID, "error", err.Error())
		return esc
	}

	exclude := map[string]bool{}
	if prev != "" {
		exclude[prev] = true
	}
	if a, err := s.assign(t, exclude); err == nil {
		esc.To = a.AgentID
		s.logger.Info("task escalated", "task_id", t.ID, "from", prev, "to", a.AgentID, "reason", reason)
		return esc
	}

	if s.cfg.Authority != "" {
		if p, ok := s.registry.Get(s.cfg.Authority); ok && !p.Suspended {
			if err := t.transition(TaskAssigned); err == nil {
				t.AssignedTo = p.ID
				p.WorkloadHours += t.EstimatedHours
				esc.To = p.ID
				esc.Authority = true
				s.announceTask(t, TaskReady)
				s.logger.Warn("task escalated to authority", "task_id", t.ID, "authority", p.ID, "reason", reason)
				return esc
			}
		}
	}

	s.unassignable[t.ID] = reason
	s.logger.Warn("escalation found no candidate", "task_id", t.ID, "reason", reason)
	return esc
}

// releaseWorkload removes the task's estimated hours from its assignee.
func (s *Scheduler) releaseWorkload(t *Task) {
	if t.AssignedTo == "" {
		return
	}
	if p, ok := s.registry.Get(t.AssignedTo); ok {
		p.WorkloadHours -= t.EstimatedHours
		if p.WorkloadHours < 0 {
			p.WorkloadHours = 0
		}
	}
}

// RecomputeWorkloads derives every agent's workload from the live task graph.
// Returns the IDs of agents whose stored value disagreed with the derived sum.
func (s *Scheduler) RecomputeWorkloads() []string {
	derived := make(map[string]float64)
	for _, id := range s.order {
		t := s.tasks[id]
		if t.State == TaskAssigned || t.State == TaskInProgress {
			derived[t.AssignedTo] += t.EstimatedHours
		}
	}
	var mismatched []string
	for _, p := range s.registry.List() {
		if p.WorkloadHours != derived[p.ID] {
			mismatched = append(mismatched, p.ID)
			p.WorkloadHours = derived[p.ID]
		}
	}
	return mismatched
}

// completedSet returns the IDs of completed tasks.
func (s *Scheduler) completedSet() map[string]bool {
	done := make(map[string]bool)
	for id, t := range s.tasks {
		if t.State == TaskCompleted {
			done[id] = true
		}
	}
	return done
}

// announceTask publishes a task lifecycle event; saturation is logged and
// dropped, never propagated.
func (s *Scheduler) announceTask(t *Task, from TaskState) {
	if s.pub == nil {
		return
	}
	ev := core.NewEvent(core.EventTaskChange, "scheduler")
	ev.Priority = core.PriorityLow
	ev.Payload = map[string]any{"task_id": t.ID, "from": string(from), "to": string(t.State), "assigned_to": t.AssignedTo}
	if err := s.pub.Publish(ev); err != nil {
		s.logger.Debug("task change announcement dropped", "task_id", t.ID, "error", err.Error())
	}
}

// announceAgent publishes an agent profile mutation event.
func (s *Scheduler) announceAgent(p *AgentProfile, change string) {
	if s.pub == nil {
		return
	}
	ev := core.NewEvent(core.EventAgentChange, "scheduler")
	ev.Priority = core.PriorityLow
	ev.Payload = map[string]any{"agent_id": p.ID, "change": change}
	if err := s.pub.Publish(ev); err != nil {
		s.logger.Debug("agent change announcement dropped", "agent_id", p.ID, "error", err.Error())
	}
}
