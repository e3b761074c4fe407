package work

import (
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Report summarizes scheduler state for operators: per-agent workload and the
// task population by lifecycle state, plus any tasks that could not be
// assigned.
type Report struct {
	Agents       []AgentLine
	StateCounts  map[TaskState]int
	Unassignable map[string]string
}

// AgentLine is one agent row in a report.
type AgentLine struct {
	ID        string
	Name      string
	Role      string
	Workload  float64
	Active    int
	Suspended bool
}

// Report builds the current summary.
func (s *Scheduler) Report() Report {
	r := Report{
		StateCounts:  make(map[TaskState]int),
		Unassignable: make(map[string]string, len(s.unassignable)),
	}
	for id, reason := range s.unassignable {
		r.Unassignable[id] = reason
	}

	active := make(map[string]int)
	for _, id := range s.order {
		t := s.tasks[id]
		r.StateCounts[t.State]++
		if t.State == TaskAssigned || t.State == TaskInProgress {
			active[t.AssignedTo]++
		}
	}

	for _, p := range s.registry.List() {
		r.Agents = append(r.Agents, AgentLine{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			Workload:  p.WorkloadHours,
			Active:    active[p.ID],
			Suspended: p.Suspended,
		})
	}
	return r
}

// Render writes the report as plain-text tables.
func (r Report) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Agent", "Name", "Role", "Workload (h)", "Active", "Suspended"})
	for _, a := range r.Agents {
		tw.AppendRow(table.Row{a.ID, a.Name, a.Role, a.Workload, a.Active, a.Suspended})
	}
	tw.Render()

	states := make([]TaskState, 0, len(r.StateCounts))
	for st := range r.StateCounts {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	tw = table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"State", "Tasks"})
	for _, st := range states {
		tw.AppendRow(table.Row{string(st), r.StateCounts[st]})
	}
	tw.Render()

	if len(r.Unassignable) == 0 {
		return
	}
	ids := make([]string, 0, len(r.Unassignable))
	for id := range r.Unassignable {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw = table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Unassignable Task", "Reason"})
	for _, id := range ids {
		tw.AppendRow(table.Row{id, r.Unassignable[id]})
	}
	tw.Render()
}
