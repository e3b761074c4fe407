// Package behavior defines the seam to the external behavior generator: the
// opaque, potentially slow, potentially failing service that decides what an
// agent does next. The turn runtime issues many Generate calls concurrently
// per round and never shares a Request across calls.
package behavior

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/crewsim/core"
)

// Request captures everything a generator needs to produce one agent turn:
// the agent's identity, its accumulated history and the stimuli pending for
// this round. The State map carries the agent's cognitive state returned by
// the previous call, round-tripped verbatim.
type Request struct {
	Agent   string         `json:"agent"`
	Role    string         `json:"role,omitempty"`
	TaskID  string         `json:"task_id,omitempty"`
	Goal    string         `json:"goal,omitempty"`
	History []core.Event   `json:"history,omitempty"`
	Stimuli []core.Event   `json:"stimuli,omitempty"`
	State   map[string]any `json:"state,omitempty"`
}

// Action is the agent's produced behavior for the round. An empty Target means
// the action is broadcast to every other attendee of a meeting-style task.
// Conclude signals that the agent (when it is the task lead) considers the
// task finished.
type Action struct {
	Content  string `json:"content"`
	Target   string `json:"target,omitempty"`
	Conclude bool   `json:"conclude,omitempty"`
}

// Response pairs the produced action with the updated cognitive state to feed
// into the next request.
type Response struct {
	Action Action         `json:"action"`
	State  map[string]any `json:"state,omitempty"`
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Generator is the minimal interface the turn runtime requires. Generate must
// honor context cancellation; the runtime applies a per-call timeout and
// cancels all in-flight calls when a round is terminated.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Info() Info
}

// MockGenerator is a deterministic in-memory Generator for tests and dry
// runs. Scripted actions are consumed per agent in FIFO order; agents without
// a script echo their stimuli.
type MockGenerator struct {
	mu      sync.Mutex
	info    Info
	scripts map[string][]Action
	fail    map[string]error
	delay   time.Duration
}

// NewMockGenerator constructs an empty MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		info:    Info{Name: "mock", Provider: "mock"},
		scripts: make(map[string][]Action),
		fail:    make(map[string]error),
	}
}

// Script appends canned actions for an agent, consumed one per Generate call.
func (m *MockGenerator) Script(agent string, actions ...Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[agent] = append(m.scripts[agent], actions...)
}

// FailFor makes every Generate call for the agent return err.
func (m *MockGenerator) FailFor(agent string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[agent] = err
}

// SetDelay makes every Generate call sleep for d before answering, respecting
// context cancellation. Useful for exercising per-call timeouts.
func (m *MockGenerator) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	delay := m.delay
	err := m.fail[req.Agent]
	var next *Action
	if q := m.scripts[req.Agent]; len(q) > 0 {
		a := q[0]
		m.scripts[req.Agent] = q[1:]
		next = &a
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return Response{}, err
	}
	if next != nil {
		return Response{Action: *next, State: req.State}, nil
	}

	var parts []string
	for _, s := range req.Stimuli {
		parts = append(parts, s.Content)
	}
	return Response{
		Action: Action{Content: fmt.Sprintf("%s acknowledges: %s", req.Agent, strings.Join(parts, "; "))},
		State:  req.State,
	}, nil
}

// Info implements Generator.
func (m *MockGenerator) Info() Info { return m.info }
