package project

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/work"
)

const validYAML = `
id: sprint-12
name: Sprint 12
scheduling_mode: same_day
execution_mode: automated
agents:
  - id: ana
    name: Ana
    role: backend
    skills:
      go: 7
      sql: 5
    preferences:
      feature: 1.5
  - id: ben
    role: frontend
    skills:
      ts: 6
tasks:
  - id: api
    title: Build API
    type: feature
    priority: 4
    required_skills:
      go: 4
    estimated_hours: 6
  - id: ui
    title: Build UI
    depends_on: [api]
    required_skills:
      ts: 3
    estimated_hours: 4
  - id: retro
    title: Retro
    attendees: [ana, ben]
    lead: ana
    round_budget: 3
calendar:
  - task: retro
    weekday: friday
    recurrence: weekly
`

func TestFromYAML_Valid(t *testing.T) {
	p, err := FromYAML([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "sprint-12", p.ID)
	assert.Equal(t, work.SchedulingSameDay, p.SchedulingMode)
	assert.Equal(t, work.ExecutionAutomated, p.ExecutionMode)
	require.Len(t, p.Agents, 2)
	require.Len(t, p.Tasks, 3)
	require.Len(t, p.Calendar, 1)

	assert.Equal(t, 7, p.Agents[0].Skills["go"])
	assert.Equal(t, work.TaskPriority(4), p.Tasks[0].Priority)
	assert.Equal(t, work.PriorityMedium, p.Tasks[2].Priority, "unset priority defaults to medium")
	assert.Equal(t, []string{"api"}, p.Tasks[1].DependsOn)
	assert.Equal(t, "ana", p.Tasks[2].Lead)
	assert.Equal(t, work.RecurrenceWeekly, p.Calendar[0].Recurrence)
}

func TestFromYAML_DefaultsModes(t *testing.T) {
	p, err := FromYAML([]byte("id: p\nagents:\n  - id: a\n"))
	require.NoError(t, err)
	assert.Equal(t, work.SchedulingSameDay, p.SchedulingMode)
	assert.Equal(t, work.ExecutionAutomated, p.ExecutionMode)
}

func TestFromYAML_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing project id", "agents:\n  - id: a\n"},
		{"no agents", "id: p\n"},
		{"duplicate agent", "id: p\nagents:\n  - id: a\n  - id: a\n"},
		{"duplicate task", "id: p\nagents:\n  - id: a\ntasks:\n  - id: t\n  - id: t\n"},
		{"skill out of range", "id: p\nagents:\n  - id: a\n    skills:\n      go: 11\n"},
		{"unknown dependency", "id: p\nagents:\n  - id: a\ntasks:\n  - id: t\n    depends_on: [ghost]\n"},
		{"unknown attendee", "id: p\nagents:\n  - id: a\ntasks:\n  - id: t\n    attendees: [ghost]\n"},
		{"unknown lead", "id: p\nagents:\n  - id: a\ntasks:\n  - id: t\n    lead: ghost\n"},
		{"unknown scheduling mode", "id: p\nscheduling_mode: chaotic\nagents:\n  - id: a\n"},
		{"bad calendar date", "id: p\nagents:\n  - id: a\ntasks:\n  - id: t\ncalendar:\n  - task: t\n    date: 2026/01/01\n"},
		{"calendar unknown task", "id: p\nagents:\n  - id: a\ncalendar:\n  - task: ghost\n"},
		{"not yaml", ":\n\t-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFromYAML_CycleIsFatal(t *testing.T) {
	const cyclic = `
id: p
agents:
  - id: a
tasks:
  - id: t1
    depends_on: [t2]
  - id: t2
    depends_on: [t3]
  - id: t3
    depends_on: [t1]
`
	_, err := FromYAML([]byte(cyclic))
	require.Error(t, err)

	var ce *core.CycleError
	require.True(t, errors.As(err, &ce))
	assert.GreaterOrEqual(t, len(ce.Path), 4, "path reports the closed cycle")
	assert.Equal(t, ce.Path[0], ce.Path[len(ce.Path)-1])
}

func TestFromYAML_SelfDependency(t *testing.T) {
	const selfDep = `
id: p
agents:
  - id: a
tasks:
  - id: t1
    depends_on: [t1]
`
	_, err := FromYAML([]byte(selfDep))
	var ce *core.CycleError
	require.True(t, errors.As(err, &ce))
}
