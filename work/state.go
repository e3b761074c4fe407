package work

import (
	"sort"
)

// Export captures the full scheduler state as a value snapshot: agents in
// registration order, live tasks in insertion order, dormant templates sorted
// by ID. Exporting twice without intervening mutation yields equal values.
func (s *Scheduler) Export() State {
	st := State{
		TaskOrder: append([]string(nil), s.order...),
	}
	for _, p := range s.registry.List() {
		st.Agents = append(st.Agents, *p.Clone())
	}
	for _, id := range s.order {
		st.Tasks = append(st.Tasks, *s.tasks[id].Clone())
	}
	tplIDs := make([]string, 0, len(s.templates))
	for id := range s.templates {
		tplIDs = append(tplIDs, id)
	}
	sort.Strings(tplIDs)
	for _, id := range tplIDs {
		st.Templates = append(st.Templates, *s.templates[id].Clone())
	}
	return st
}

// Import replaces the scheduler's state with an exported snapshot. Identities
// already present in the registry are overwritten in place; each overwrite is
// reported as a RestoreConflictError in the returned slice so callers can log
// them. Workloads are re-derived from the restored task graph; any snapshot
// value that disagrees is corrected and logged.
func (s *Scheduler) Import(st State) []error {
	var conflicts []error

	for i := range st.Agents {
		p := st.Agents[i].Clone()
		if err := s.registry.Rehydrate(p); err != nil {
			conflicts = append(conflicts, err)
		}
	}

	s.tasks = make(map[string]*Task, len(st.Tasks))
	s.order = make([]string, 0, len(st.Tasks))
	for i := range st.Tasks {
		t := st.Tasks[i].Clone()
		s.tasks[t.ID] = t
		s.order = append(s.order, t.ID)
	}

	s.templates = make(map[string]*Task, len(st.Templates))
	for i := range st.Templates {
		t := st.Templates[i].Clone()
		s.templates[t.ID] = t
	}

	s.unassignable = make(map[string]string)

	if mismatched := s.RecomputeWorkloads(); len(mismatched) > 0 {
		s.logger.Warn("workload derived from tasks disagreed with snapshot", "agents", mismatched)
	}
	return conflicts
}
