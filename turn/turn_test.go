package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/crewsim/behavior"
	"github.com/hupe1980/crewsim/bus"
	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/work"
)

func testParticipants(ids ...string) []*Participant {
	out := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewParticipant(&work.AgentProfile{ID: id}))
	}
	return out
}

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b.Start(ctx)
	t.Cleanup(b.Close)
	return b
}

func TestRuntime_RoundBudgetBoundsExecution(t *testing.T) {
	gen := behavior.NewMockGenerator()
	rt := NewRuntime(newTestBus(t), gen)

	task := &work.Task{ID: "mtg", Title: "standup", RoundBudget: 3}
	res, err := rt.RunTask(context.Background(), task, testParticipants("ana", "ben"))

	require.NoError(t, err)
	assert.Equal(t, 3, res.Rounds)
	assert.False(t, res.Concluded)
	assert.Empty(t, res.Failures)
	// Opening stimulus plus two actions per round.
	assert.Len(t, res.Transcript, 1+3*2)
}

func TestRuntime_LeadConcludeEndsTask(t *testing.T) {
	gen := behavior.NewMockGenerator()
	gen.Script("lead",
		behavior.Action{Content: "let's get started"},
		behavior.Action{Content: "wrapping up", Conclude: true},
	)
	rt := NewRuntime(newTestBus(t), gen)

	task := &work.Task{ID: "mtg", Title: "planning", RoundBudget: 10, Lead: "lead"}
	res, err := rt.RunTask(context.Background(), task, testParticipants("lead", "dev"))

	require.NoError(t, err)
	assert.True(t, res.Concluded)
	assert.Equal(t, 2, res.Rounds)
}

func TestRuntime_NonLeadConcludeOnlySilencesSpeaker(t *testing.T) {
	gen := behavior.NewMockGenerator()
	gen.Script("dev", behavior.Action{Content: "nothing from me", Conclude: true})
	rt := NewRuntime(newTestBus(t), gen)

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 2, Lead: "lead"}
	res, err := rt.RunTask(context.Background(), task, testParticipants("lead", "dev"))

	require.NoError(t, err)
	assert.False(t, res.Concluded)
	assert.Equal(t, 2, res.Rounds)

	// dev spoke only in round one: opening + (lead+dev) + lead.
	assert.Len(t, res.Transcript, 4)
}

func TestRuntime_TimeoutSkipsParticipantForRound(t *testing.T) {
	gen := behavior.NewMockGenerator()
	gen.SetDelay(200 * time.Millisecond)
	rt := NewRuntime(newTestBus(t), gen, func(o *Options) {
		o.Timeout = 20 * time.Millisecond
	})

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 1}
	res, err := rt.RunTask(context.Background(), task, testParticipants("slow"))

	require.NoError(t, err, "a missed turn is recoverable, not fatal")
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "slow", res.Failures[0].Participant)
	assert.Equal(t, 1, res.Failures[0].Round)
	assert.True(t, errors.Is(res.Failures[0].Err, context.DeadlineExceeded))
}

func TestRuntime_GeneratorErrorSkipsParticipant(t *testing.T) {
	gen := behavior.NewMockGenerator()
	gen.FailFor("flaky", errors.New("backend unavailable"))
	rt := NewRuntime(newTestBus(t), gen)

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 2}
	res, err := rt.RunTask(context.Background(), task, testParticipants("flaky", "ok"))

	require.NoError(t, err)
	assert.Len(t, res.Failures, 2, "flaky is skipped each round but never removed")
	// The healthy participant still produced an action per round.
	var fromOK int
	for _, ev := range res.Transcript {
		if ev.Sender == "ok" {
			fromOK++
		}
	}
	assert.Equal(t, 2, fromOK)
}

func TestRuntime_TargetedDelivery(t *testing.T) {
	gen := behavior.NewMockGenerator()
	gen.Script("ana", behavior.Action{Content: "just for you", Target: "ben"})
	rt := NewRuntime(newTestBus(t), gen)

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 2}
	participants := testParticipants("ana", "ben", "carol")
	_, err := rt.RunTask(context.Background(), task, participants)
	require.NoError(t, err)

	var carolSawTargeted bool
	for _, ev := range participants[2].History() {
		if ev.Sender == "ana" && ev.Content == "just for you" {
			carolSawTargeted = true
		}
	}
	assert.False(t, carolSawTargeted, "targeted actions reach only their target")

	var benSawTargeted bool
	for _, ev := range participants[1].History() {
		if ev.Sender == "ana" && ev.Content == "just for you" {
			benSawTargeted = true
		}
	}
	assert.True(t, benSawTargeted)
}

// blockingCheckpoint terminates after a fixed number of boundaries.
type blockingCheckpoint struct {
	mu         sync.Mutex
	boundaries int
	stopAfter  int
	inject     []core.Event
}

func (c *blockingCheckpoint) Wait(ctx context.Context) (Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundaries++
	res := Resolution{Inject: c.inject}
	c.inject = nil
	if c.boundaries >= c.stopAfter {
		res.Terminate = true
	}
	return res, nil
}

func TestRuntime_CheckpointTerminatesAtBoundary(t *testing.T) {
	gen := behavior.NewMockGenerator()
	cp := &blockingCheckpoint{stopAfter: 2}
	rt := NewRuntime(newTestBus(t), gen, func(o *Options) {
		o.Checkpoint = cp
	})

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 10}
	res, err := rt.RunTask(context.Background(), task, testParticipants("ana"))

	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, 2, res.Rounds, "termination lands exactly at the round boundary")
}

func TestRuntime_CheckpointInjectionReachesEveryone(t *testing.T) {
	gen := behavior.NewMockGenerator()
	steer := core.NewDirectiveEvent("switch focus to the outage")
	cp := &blockingCheckpoint{stopAfter: 99, inject: []core.Event{steer}}
	rt := NewRuntime(newTestBus(t), gen, func(o *Options) {
		o.Checkpoint = cp
	})

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 2}
	participants := testParticipants("ana", "ben")
	res, err := rt.RunTask(context.Background(), task, participants)
	require.NoError(t, err)

	for _, p := range participants {
		var saw bool
		for _, ev := range p.History() {
			if ev.ID == steer.ID {
				saw = true
			}
		}
		assert.True(t, saw, "steering broadcast must reach %s", p.Profile.ID)
	}
	assert.Contains(t, eventIDs(res.Transcript), steer.ID)
}

func eventIDs(evs []core.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.ID)
	}
	return out
}

func TestRuntime_ContextCancellation(t *testing.T) {
	gen := behavior.NewMockGenerator()
	gen.SetDelay(50 * time.Millisecond)
	rt := NewRuntime(newTestBus(t), gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := &work.Task{ID: "mtg", Title: "sync", RoundBudget: 5}
	_, err := rt.RunTask(ctx, task, testParticipants("ana"))
	assert.ErrorIs(t, err, context.Canceled)
}
