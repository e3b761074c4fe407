// Package turn drives rounds of concurrent agent turns for a single task.
//
// Within a round every active participant takes exactly one turn. Turns run
// concurrently; delivery of the produced actions happens at the end of the
// round, so no participant sees a same-round action. Between rounds the
// runtime yields to an optional checkpoint, which is where pause, redirect
// and terminate directives take effect.
package turn

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/crewsim/behavior"
	"github.com/hupe1980/crewsim/bus"
	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/logging"
	"github.com/hupe1980/crewsim/work"
)

// Resolution is a checkpoint's verdict between rounds.
type Resolution struct {
	// Terminate aborts the task after the round that just finished.
	Terminate bool

	// Inject holds events to broadcast to all participants before the next
	// round, typically a steering message from a redirect.
	Inject []core.Event
}

// Checkpoint gates round boundaries. Wait blocks while execution is paused
// and returns the resolution once the task may continue.
type Checkpoint interface {
	Wait(ctx context.Context) (Resolution, error)
}

// Participant is one agent taking part in a task. Its history and working
// state belong to the participant alone; the runtime is the only writer.
type Participant struct {
	Profile *work.AgentProfile

	history []core.Event
	pending []core.Event
	state   map[string]any
	done    bool
}

// NewParticipant wraps an agent profile for task execution.
func NewParticipant(p *work.AgentProfile) *Participant {
	return &Participant{Profile: p, state: make(map[string]any)}
}

// History returns the events this participant has seen or produced, in order.
func (p *Participant) History() []core.Event {
	return append([]core.Event(nil), p.history...)
}

// Options configures a Runtime.
type Options struct {
	// Timeout bounds each behavior call. A participant that misses it is
	// skipped for the rest of the round, not removed from the task.
	Timeout time.Duration

	// MaxRounds caps rounds for tasks without their own round budget.
	MaxRounds int

	// Checkpoint gates round boundaries; nil means rounds run back to back.
	Checkpoint Checkpoint

	Logger logging.Logger
}

// TaskResult summarizes one task execution.
type TaskResult struct {
	TaskID     string
	Rounds     int
	Concluded  bool
	Terminated bool
	Transcript []core.Event
	Failures   []*core.NoResponseError
}

// Runtime executes tasks as rounds of concurrent turns over a shared bus.
type Runtime struct {
	bus     *bus.Bus
	gen     behavior.Generator
	timeout time.Duration
	rounds  int
	cp      Checkpoint
	logger  logging.Logger
}

// NewRuntime builds a Runtime over the given bus and behavior generator.
func NewRuntime(b *bus.Bus, gen behavior.Generator, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Timeout:   30 * time.Second,
		MaxRounds: 5,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runtime{
		bus:     b,
		gen:     gen,
		timeout: opts.Timeout,
		rounds:  opts.MaxRounds,
		cp:      opts.Checkpoint,
		logger:  opts.Logger,
	}
}

// turnOutcome carries one participant's turn back to the collector.
type turnOutcome struct {
	index  int
	action behavior.Action
	state  map[string]any
	err    error
}

// RunTask executes the task until its lead concludes, the round budget runs
// out, a checkpoint terminates it, or the context is canceled.
func (r *Runtime) RunTask(ctx context.Context, t *work.Task, participants []*Participant) (*TaskResult, error) {
	result := &TaskResult{TaskID: t.ID}

	budget := t.RoundBudget
	if budget <= 0 {
		budget = r.rounds
	}

	opening := core.NewStimulus("facilitator", "", openingContent(t))
	r.deliver(participants, opening)
	result.Transcript = append(result.Transcript, opening)

	for round := 1; round <= budget; round++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Rounds = round
		start := time.Now()

		outcomes := r.runRound(ctx, t, participants)

		var failures int
		for _, out := range outcomes {
			p := participants[out.index]
			if out.err != nil {
				failures++
				nre := &core.NoResponseError{Participant: p.Profile.ID, Round: round, Err: out.err}
				result.Failures = append(result.Failures, nre)
				r.logger.Warn("participant skipped", "agent", p.Profile.ID, "round", round, "error", out.err.Error())
				continue
			}
			if out.state != nil {
				p.state = out.state
			}

			ev := core.NewAction(p.Profile.ID, out.action.Target, out.action.Content)
			r.publish(ev)
			r.deliver(participants, ev)
			result.Transcript = append(result.Transcript, ev)

			if out.action.Conclude {
				if t.Lead == "" || p.Profile.ID == t.Lead {
					result.Concluded = true
				} else {
					p.done = true
				}
			}
		}

		r.logger.Info("round complete",
			"task_id", t.ID,
			"round", round,
			"participants", len(outcomes),
			"failures", failures,
			"duration", time.Since(start).String(),
		)

		r.bus.ResetWindow()

		if result.Concluded {
			break
		}

		if r.cp != nil {
			res, err := r.cp.Wait(ctx)
			if err != nil {
				return result, err
			}
			if res.Terminate {
				result.Terminated = true
				break
			}
			for _, ev := range res.Inject {
				r.publish(ev)
				r.deliver(participants, ev)
				result.Transcript = append(result.Transcript, ev)
			}
		}
	}

	return result, nil
}

// runRound fans the pending stimuli out to every active participant
// concurrently and collects one outcome per turn, ordered by participant.
func (r *Runtime) runRound(ctx context.Context, t *work.Task, participants []*Participant) []turnOutcome {
	var wg sync.WaitGroup
	ch := make(chan turnOutcome, len(participants))

	for i, p := range participants {
		if p.done || p.Profile.Suspended {
			continue
		}
		req := behavior.Request{
			Agent:   p.Profile.ID,
			Role:    p.Profile.Role,
			TaskID:  t.ID,
			Goal:    openingContent(t),
			History: append([]core.Event(nil), p.history...),
			Stimuli: p.pending,
			State:   p.state,
		}
		p.pending = nil

		wg.Add(1)
		go func(idx int, req behavior.Request) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			resp, err := r.gen.Generate(callCtx, req)
			if err != nil {
				ch <- turnOutcome{index: idx, err: err}
				return
			}
			ch <- turnOutcome{index: idx, action: resp.Action, state: resp.State}
		}(i, req)
	}

	wg.Wait()
	close(ch)

	outcomes := make([]turnOutcome, 0, len(participants))
	for out := range ch {
		outcomes = append(outcomes, out)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })
	return outcomes
}

// deliver routes an event into participant inboxes. A broadcast reaches every
// participant except its sender; a targeted event reaches only its target.
// Senders keep their own actions in history so they remember what they said.
func (r *Runtime) deliver(participants []*Participant, ev core.Event) {
	for _, p := range participants {
		if p.Profile.ID == ev.Sender {
			p.history = append(p.history, ev)
			continue
		}
		if !ev.For(p.Profile.ID) {
			continue
		}
		p.history = append(p.history, ev)
		p.pending = append(p.pending, ev)
	}
}

// publish mirrors the event onto the bus for observers. Saturation is
// retryable at the next round, so it is logged and the event dropped from the
// bus only; in-round delivery is unaffected.
func (r *Runtime) publish(ev core.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ev); err != nil {
		r.logger.Warn("bus publish deferred", "event", ev.ID, "error", err.Error())
	}
}

func openingContent(t *work.Task) string {
	if t.Description != "" {
		return t.Description
	}
	return t.Title
}
