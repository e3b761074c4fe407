// Package project loads simulation project definitions from YAML and
// validates them before the scheduler sees them.
package project

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/work"
)

// Definition is the YAML shape of a project file.
type Definition struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	SchedulingMode string `yaml:"scheduling_mode"`
	ExecutionMode  string `yaml:"execution_mode"`

	Agents   []AgentDef    `yaml:"agents"`
	Tasks    []TaskDef     `yaml:"tasks"`
	Calendar []CalendarDef `yaml:"calendar"`
}

// AgentDef is one agent entry in a project file.
type AgentDef struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Role        string             `yaml:"role"`
	Skills      map[string]int     `yaml:"skills"`
	Preferences map[string]float64 `yaml:"preferences"`
	Start       string             `yaml:"start"`
	End         string             `yaml:"end"`
}

// TaskDef is one task entry in a project file.
type TaskDef struct {
	ID             string         `yaml:"id"`
	Title          string         `yaml:"title"`
	Description    string         `yaml:"description"`
	Type           string         `yaml:"type"`
	Priority       int            `yaml:"priority"`
	RequiredSkills map[string]int `yaml:"required_skills"`
	EstimatedHours float64        `yaml:"estimated_hours"`
	DependsOn      []string       `yaml:"depends_on"`
	Spawns         []string       `yaml:"spawns"`
	Attendees      []string       `yaml:"attendees"`
	Lead           string         `yaml:"lead"`
	RoundBudget    int            `yaml:"round_budget"`
}

// CalendarDef is one calendar entry in a project file.
type CalendarDef struct {
	Task       string `yaml:"task"`
	Date       string `yaml:"date"`
	Weekday    string `yaml:"weekday"`
	Recurrence string `yaml:"recurrence"`
}

// LoadFile reads, parses and validates a project definition file.
func LoadFile(path string) (*work.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file %s: %w", path, err)
	}
	return FromYAML(data)
}

// FromYAML parses and validates a project definition from raw YAML bytes.
func FromYAML(data []byte) (*work.Project, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid project yaml: %w", err)
	}
	return def.Build()
}

// Build validates the definition and converts it into the scheduler's model.
// A dependency cycle is fatal and rejects the whole project.
func (d *Definition) Build() (*work.Project, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if err := d.checkCycles(); err != nil {
		return nil, err
	}

	p := &work.Project{
		ID:             d.ID,
		Name:           d.Name,
		SchedulingMode: work.SchedulingMode(strings.ToLower(d.SchedulingMode)),
		ExecutionMode:  work.ExecutionMode(strings.ToLower(d.ExecutionMode)),
	}
	if p.SchedulingMode == "" {
		p.SchedulingMode = work.SchedulingSameDay
	}
	if p.ExecutionMode == "" {
		p.ExecutionMode = work.ExecutionAutomated
	}

	for _, a := range d.Agents {
		p.Agents = append(p.Agents, &work.AgentProfile{
			ID:          a.ID,
			Name:        a.Name,
			Role:        a.Role,
			Skills:      a.Skills,
			Preferences: a.Preferences,
			Availability: work.Window{
				Start: a.Start,
				End:   a.End,
			},
		})
	}

	for _, t := range d.Tasks {
		pr := work.TaskPriority(t.Priority)
		if pr == 0 {
			pr = work.PriorityMedium
		}
		p.Tasks = append(p.Tasks, &work.Task{
			ID:             t.ID,
			Title:          t.Title,
			Description:    t.Description,
			Type:           t.Type,
			Priority:       pr,
			RequiredSkills: t.RequiredSkills,
			EstimatedHours: t.EstimatedHours,
			DependsOn:      t.DependsOn,
			Spawns:         t.Spawns,
			Attendees:      t.Attendees,
			Lead:           t.Lead,
			RoundBudget:    t.RoundBudget,
			State:          work.TaskCreated,
		})
	}

	for i, c := range d.Calendar {
		entry := work.CalendarEntry{
			ID:         fmt.Sprintf("%s-cal-%d", d.ID, i+1),
			TaskID:     c.Task,
			Date:       c.Date,
			Recurrence: work.Recurrence(strings.ToLower(c.Recurrence)),
		}
		if entry.Recurrence == "" {
			entry.Recurrence = work.RecurrenceNone
		}
		if c.Weekday != "" {
			wd, err := parseWeekday(c.Weekday)
			if err != nil {
				return nil, err
			}
			entry.Weekday = wd
		}
		p.Calendar = append(p.Calendar, entry)
	}
	return p, nil
}

func (d *Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("project id is required")
	}
	if len(d.Agents) == 0 {
		return fmt.Errorf("project %s defines no agents", d.ID)
	}

	switch strings.ToLower(d.SchedulingMode) {
	case "", string(work.SchedulingSameDay), string(work.SchedulingDistributed), string(work.SchedulingCompressed):
	default:
		return fmt.Errorf("unknown scheduling mode %q", d.SchedulingMode)
	}
	switch strings.ToLower(d.ExecutionMode) {
	case "", string(work.ExecutionAutomated), string(work.ExecutionCheckpointed), string(work.ExecutionSimulated):
	default:
		return fmt.Errorf("unknown execution mode %q", d.ExecutionMode)
	}

	agents := make(map[string]bool, len(d.Agents))
	for _, a := range d.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent without id in project %s", d.ID)
		}
		if agents[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		agents[a.ID] = true
		for skill, level := range a.Skills {
			if level < 0 || level > work.MaxSkillLevel {
				return fmt.Errorf("agent %s skill %q level %d out of range 0..%d", a.ID, skill, level, work.MaxSkillLevel)
			}
		}
	}

	tasks := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		if t.ID == "" {
			return fmt.Errorf("task without id in project %s", d.ID)
		}
		if tasks[t.ID] {
			return fmt.Errorf("duplicate task id %q", t.ID)
		}
		tasks[t.ID] = true
		if t.Priority < 0 || t.Priority > int(work.PriorityCritical) {
			return fmt.Errorf("task %s priority %d out of range 1..%d", t.ID, t.Priority, work.PriorityCritical)
		}
		for skill, min := range t.RequiredSkills {
			if min < 0 || min > work.MaxSkillLevel {
				return fmt.Errorf("task %s required skill %q minimum %d out of range 0..%d", t.ID, skill, min, work.MaxSkillLevel)
			}
		}
		if t.EstimatedHours < 0 {
			return fmt.Errorf("task %s has negative estimated hours", t.ID)
		}
	}

	for _, t := range d.Tasks {
		for _, dep := range t.DependsOn {
			if !tasks[dep] {
				return fmt.Errorf("task %s depends on unknown task %q", t.ID, dep)
			}
		}
		for _, sp := range t.Spawns {
			if !tasks[sp] {
				return fmt.Errorf("task %s spawns unknown task %q", t.ID, sp)
			}
		}
		for _, at := range t.Attendees {
			if !agents[at] {
				return fmt.Errorf("task %s lists unknown attendee %q", t.ID, at)
			}
		}
		if t.Lead != "" && !agents[t.Lead] {
			return fmt.Errorf("task %s names unknown lead %q", t.ID, t.Lead)
		}
	}

	for _, c := range d.Calendar {
		if !tasks[c.Task] {
			return fmt.Errorf("calendar entry references unknown task %q", c.Task)
		}
		if c.Date != "" {
			if _, err := time.Parse(work.DateLayout, c.Date); err != nil {
				return fmt.Errorf("calendar entry for %s has invalid date %q: %w", c.Task, c.Date, err)
			}
		}
		switch strings.ToLower(c.Recurrence) {
		case "", string(work.RecurrenceNone), string(work.RecurrenceDaily), string(work.RecurrenceWeekly):
		default:
			return fmt.Errorf("calendar entry for %s has unknown recurrence %q", c.Task, c.Recurrence)
		}
	}
	return nil
}

// checkCycles runs a depth-first search over the dependency edges and rejects
// the project on the first cycle found, reporting the closed path.
func (d *Definition) checkCycles() error {
	deps := make(map[string][]string, len(d.Tasks))
	for _, t := range d.Tasks {
		deps[t.ID] = t.DependsOn
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(deps))
	var path []string

	var visit func(id string) *core.CycleError
	visit = func(id string) *core.CycleError {
		state[id] = visiting
		path = append(path, id)
		for _, dep := range deps[id] {
			switch state[dep] {
			case visiting:
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string(nil), path[start:]...), dep)
				return &core.CycleError{Path: cycle}
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for _, t := range d.Tasks {
		if state[t.ID] == unvisited {
			if err := visit(t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(s) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
