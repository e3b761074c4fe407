// Package crewsim provides a high-level façade over the scheduler, turn
// runtime, event bus and persistence layers for running simulated work days
// of a multi-agent crew. Most applications interact with this package by:
//  1. Loading a project definition (see the project package)
//  2. Creating a Sim via New() (optionally overriding defaults)
//  3. Running simulated days (RunDay) and inspecting the results
//
// The façade wires the pieces together while keeping setup concise. All
// defaults are safe for local development and testing; production runs
// typically supply a real behavior generator, a durable snapshot store and a
// structured logger.
package crewsim

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hupe1980/crewsim/behavior"
	"github.com/hupe1980/crewsim/bus"
	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/interrupt"
	"github.com/hupe1980/crewsim/logging"
	"github.com/hupe1980/crewsim/snapshot"
	"github.com/hupe1980/crewsim/turn"
	"github.com/hupe1980/crewsim/work"
)

// Options configures the Sim instance.
type Options struct {
	// BusOptions tunes the event bus (saturation ceiling, buffers).
	BusOptions bus.Options

	// SchedulerConfig tunes assignment scoring and escalation.
	SchedulerConfig work.Config

	// TurnTimeout bounds each behavior call during a round.
	TurnTimeout time.Duration

	// MaxRounds caps rounds for tasks without their own round budget.
	MaxRounds int

	// Generator produces agent behavior (defaults to a mock that echoes
	// stimuli, suitable for tests and dry runs).
	Generator behavior.Generator

	// Store persists snapshots (defaults to in-memory).
	Store snapshot.Store

	// Source supplies operator directives. Nil disables interrupt control;
	// execution proceeds as if no interrupt capability existed.
	Source interrupt.Source

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// DayResult summarizes one simulated work day.
type DayResult struct {
	Date          string
	Tasks         []*turn.TaskResult
	Assignments   []work.Assignment
	Escalations   []work.Escalation
	SnapshotToken string
	Terminated    bool
}

// Sim is the high-level façade aggregating the underlying components.
type Sim struct {
	project *work.Project
	bus     *bus.Bus
	sched   *work.Scheduler
	cal     *work.Calendar
	runtime *turn.Runtime
	ctrl    *interrupt.Controller
	snaps   *snapshot.Manager
	logger  logging.Logger
}

// New creates a Sim for the project with optional overrides. Any unset
// component is initialized with an in-process default.
func New(p *work.Project, optFns ...func(o *Options)) (*Sim, error) {
	opts := Options{
		BusOptions:      bus.DefaultOptions,
		SchedulerConfig: work.DefaultConfig,
		TurnTimeout:     30 * time.Second,
		MaxRounds:       5,
		Generator:       behavior.NewMockGenerator(),
		Store:           snapshot.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	b := bus.New(func(o *bus.Options) {
		*o = opts.BusOptions
		if o.Logger == nil {
			o.Logger = opts.Logger
		}
	})

	registry := work.NewRegistry()
	sched := work.NewScheduler(registry, func(o *work.Options) {
		o.Config = opts.SchedulerConfig
		o.Logger = opts.Logger
		o.Publisher = b
	})
	if err := sched.Load(p); err != nil {
		return nil, fmt.Errorf("load project %s: %w", p.ID, err)
	}

	cal := work.NewCalendar()
	for _, e := range p.Calendar {
		cal.Add(e)
	}

	ctrl := interrupt.New(opts.Source, func(o *interrupt.Options) {
		o.Logger = opts.Logger
		o.Status = func() string { return renderStatus(sched) }
	})

	runtime := turn.NewRuntime(b, opts.Generator, func(o *turn.Options) {
		o.Timeout = opts.TurnTimeout
		o.MaxRounds = opts.MaxRounds
		o.Checkpoint = ctrl
		o.Logger = opts.Logger
	})

	snaps := snapshot.NewManager(p.ID, sched, cal, opts.Store, func(o *snapshot.Options) {
		o.Logger = opts.Logger
	})

	return &Sim{
		project: p,
		bus:     b,
		sched:   sched,
		cal:     cal,
		runtime: runtime,
		ctrl:    ctrl,
		snaps:   snaps,
		logger:  opts.Logger,
	}, nil
}

// Start launches the bus dispatcher and the interrupt watcher.
func (s *Sim) Start(ctx context.Context) {
	s.bus.Start(ctx)
	s.ctrl.Start(ctx)
}

// Close shuts the bus down, draining pending deliveries.
func (s *Sim) Close() { s.bus.Close() }

// Bus exposes the event bus for observers.
func (s *Sim) Bus() *bus.Bus { return s.bus }

// Scheduler exposes the work scheduler.
func (s *Sim) Scheduler() *work.Scheduler { return s.sched }

// Interrupts exposes the interrupt controller for programmatic directives.
func (s *Sim) Interrupts() *interrupt.Controller { return s.ctrl }

// RunDay simulates one work day: calendar entries for the date are
// materialized, ready tasks are assigned and executed as rounds of turns,
// stale work is escalated, and the resulting state is snapshotted under
// "<projectID>@<date>".
func (s *Sim) RunDay(ctx context.Context, date string) (*DayResult, error) {
	day, err := time.Parse(work.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	result := &DayResult{Date: date}

	for _, e := range s.cal.EntriesFor(day) {
		if _, err := s.sched.Materialize(e, day); err != nil {
			s.logger.Debug("calendar entry skipped", "entry", e.ID, "error", err.Error())
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		s.sched.RefreshReady()
		assignments := s.sched.AssignReady()
		result.Assignments = append(result.Assignments, assignments...)

		ran, err := s.runAssigned(ctx, day, result)
		if err != nil {
			return result, err
		}
		if result.Terminated {
			break
		}
		if len(assignments) == 0 && ran == 0 {
			break
		}
		if s.project.SchedulingMode == work.SchedulingDistributed && ran > 0 {
			break
		}
	}

	result.Escalations = s.sched.EscalateStale()

	token, err := s.snaps.Snapshot(date)
	if err != nil {
		return result, err
	}
	result.SnapshotToken = token
	return result, nil
}

// runAssigned executes every assigned task that is due on the given day,
// honoring the project's scheduling and execution modes. It returns the
// number of tasks run.
func (s *Sim) runAssigned(ctx context.Context, day time.Time, result *DayResult) (int, error) {
	var ran int
	for _, t := range s.sched.Tasks() {
		if t.State != work.TaskAssigned {
			continue
		}
		if !s.dueOn(t, day) {
			continue
		}

		if err := s.sched.Start(t.ID); err != nil {
			return ran, err
		}
		ran++

		if s.project.ExecutionMode == work.ExecutionSimulated {
			if err := s.sched.Complete(t.ID); err != nil {
				return ran, err
			}
			result.Tasks = append(result.Tasks, &turn.TaskResult{TaskID: t.ID, Concluded: true})
			continue
		}

		res, err := s.runtime.RunTask(ctx, t, s.participants(t))
		if res != nil {
			result.Tasks = append(result.Tasks, res)
		}
		if err != nil {
			return ran, err
		}

		if res.Terminated {
			if berr := s.sched.Block(t.ID, "terminated by operator"); berr != nil {
				s.logger.Error("block after termination failed", "task_id", t.ID, "error", berr.Error())
			}
			result.Terminated = true
			return ran, nil
		}
		if err := s.sched.Complete(t.ID); err != nil {
			return ran, err
		}

		if s.project.ExecutionMode == work.ExecutionCheckpointed {
			s.ctrl.Apply(core.NewDirective(core.DirectivePause, ""))
		}

		if s.project.SchedulingMode == work.SchedulingDistributed {
			return ran, nil
		}
	}
	return ran, nil
}

// dueOn reports whether a task may run on the given day. Compressed
// scheduling ignores scheduled starts and pulls everything forward.
func (s *Sim) dueOn(t *work.Task, day time.Time) bool {
	if s.project.SchedulingMode == work.SchedulingCompressed {
		return true
	}
	if t.ScheduledStart.IsZero() {
		return true
	}
	return !t.ScheduledStart.After(day)
}

// participants resolves the agents taking part in a task: its attendees for a
// meeting, otherwise its assignee.
func (s *Sim) participants(t *work.Task) []*turn.Participant {
	var out []*turn.Participant
	if t.Meeting() {
		for _, id := range t.Attendees {
			if p, ok := s.sched.Registry().Get(id); ok {
				out = append(out, turn.NewParticipant(p))
			}
		}
		return out
	}
	if p, ok := s.sched.Registry().Get(t.AssignedTo); ok {
		out = append(out, turn.NewParticipant(p))
	}
	return out
}

// RestoreDay loads the snapshot for the token and replaces the live state.
// Execution is paused for the swap and resumed afterwards. The pause takes
// effect at the next round boundary, so RestoreDay must be called from the
// same goroutine that calls RunDay, between days, never while a round is in
// flight.
func (s *Sim) RestoreDay(token string) (work.State, error) {
	s.ctrl.Apply(core.NewDirective(core.DirectivePause, ""))
	defer s.ctrl.Apply(core.NewDirective(core.DirectiveResume, ""))
	return s.snaps.Restore(token)
}

// Snapshots lists the stored snapshot tokens.
func (s *Sim) Snapshots() ([]string, error) { return s.snaps.List() }

// Report writes the current scheduler summary as plain-text tables.
func (s *Sim) Report(w io.Writer) { s.sched.Report().Render(w) }

func renderStatus(sched *work.Scheduler) string {
	var sb strings.Builder
	sched.Report().Render(&sb)
	return sb.String()
}
