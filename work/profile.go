package work

import (
	"fmt"
	"sync"

	"github.com/hupe1980/crewsim/core"
)

// MaxSkillLevel bounds the proficiency scale.
const MaxSkillLevel = 10

// Window is an availability window within a simulated day, expressed as
// "HH:MM" wall-clock bounds. The zero value means always available.
type Window struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Contains reports whether the "HH:MM" time falls inside the window. An unset
// window contains every time.
func (w Window) Contains(hhmm string) bool {
	if w.Start == "" || w.End == "" {
		return true
	}
	return hhmm >= w.Start && hhmm < w.End
}

// AgentProfile describes a simulated agent: identity, skills, preferences,
// current load and availability. Workload is mutated only by the Scheduler;
// skills grow only through the agent's own completion events. Profiles live
// for the whole simulation; a departing agent is suspended, never deleted.
type AgentProfile struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`

	// Skills maps skill name to proficiency on the 0-10 scale.
	Skills map[string]int `json:"skills,omitempty"`

	// Preferences maps task type to an affinity bonus added to the
	// assignment score.
	Preferences map[string]float64 `json:"preferences,omitempty"`

	// WorkloadHours is the sum of estimated durations of the agent's
	// currently assigned and in-progress tasks. Derived; never negative.
	WorkloadHours float64 `json:"workload_hours"`

	Availability Window `json:"availability,omitempty"`
	Suspended    bool   `json:"suspended,omitempty"`

	// Seq is the registration order, used for deterministic tie-breaking.
	Seq int `json:"seq"`
}

// MeetsMinimums reports whether the profile satisfies every required-skill
// threshold.
func (p *AgentProfile) MeetsMinimums(required map[string]int) bool {
	for skill, min := range required {
		if p.Skills[skill] < min {
			return false
		}
	}
	return true
}

// GrowSkills raises each listed skill by the increment, capped at
// MaxSkillLevel. Called on the agent's own task completions.
func (p *AgentProfile) GrowSkills(skills map[string]int, increment int) {
	if increment <= 0 {
		return
	}
	if p.Skills == nil {
		p.Skills = make(map[string]int, len(skills))
	}
	for skill := range skills {
		lvl := p.Skills[skill] + increment
		if lvl > MaxSkillLevel {
			lvl = MaxSkillLevel
		}
		p.Skills[skill] = lvl
	}
}

// Clone returns a deep copy safe for independent mutation.
func (p *AgentProfile) Clone() *AgentProfile {
	c := *p
	c.Skills = make(map[string]int, len(p.Skills))
	for k, v := range p.Skills {
		c.Skills[k] = v
	}
	c.Preferences = make(map[string]float64, len(p.Preferences))
	for k, v := range p.Preferences {
		c.Preferences[k] = v
	}
	return &c
}

// Registry is the explicit agent identity registry owned by the Scheduler.
// It replaces ambient global state: every lookup goes through a handle, which
// makes restore-time identity reconciliation a local concern.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*AgentProfile
	order  []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*AgentProfile)}
}

// Register adds a new profile, assigning its registration sequence. A
// duplicate identity is an error at registration time (restores use Rehydrate).
func (r *Registry) Register(p *AgentProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[p.ID]; exists {
		return fmt.Errorf("agent %s already registered", p.ID)
	}
	p.Seq = len(r.order)
	r.agents[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Rehydrate installs a restored profile. If the identity already exists it is
// overwritten in place (keeping its original registration slot) and a
// RestoreConflictError describing the collision is returned alongside; the
// caller logs it and continues.
func (r *Registry) Rehydrate(p *AgentProfile) *core.RestoreConflictError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.agents[p.ID]; ok {
		p.Seq = existing.Seq
		r.agents[p.ID] = p
		return &core.RestoreConflictError{AgentID: p.ID}
	}
	p.Seq = len(r.order)
	r.agents[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Get returns the live profile for the identity.
func (r *Registry) Get(id string) (*AgentProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.agents[id]
	return p, ok
}

// List returns the profiles in registration order. The slice is a snapshot;
// the profiles are the live values.
func (r *Registry) List() []*AgentProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*AgentProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Suspend marks the identity unavailable for scheduling without deleting it.
func (r *Registry) Suspend(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent %s not registered", id)
	}
	p.Suspended = true
	return nil
}

// Activate clears a suspension.
func (r *Registry) Activate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.agents[id]
	if !ok {
		return fmt.Errorf("agent %s not registered", id)
	}
	p.Suspended = false
	return nil
}
