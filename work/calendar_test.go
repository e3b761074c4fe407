package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_EntriesFor(t *testing.T) {
	// 2026-08-28 is a Friday.
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	saturday := friday.AddDate(0, 0, 1)

	cal := NewCalendar(
		CalendarEntry{ID: "daily", TaskID: "standup", Recurrence: RecurrenceDaily},
		CalendarEntry{ID: "weekly", TaskID: "retro", Weekday: time.Friday, Recurrence: RecurrenceWeekly},
		CalendarEntry{ID: "once", TaskID: "kickoff", Date: "2026-08-28", Recurrence: RecurrenceNone},
	)

	fri := cal.EntriesFor(friday)
	require.Len(t, fri, 3)

	sat := cal.EntriesFor(saturday)
	require.Len(t, sat, 1)
	assert.Equal(t, "daily", sat[0].ID)
}

func TestCalendar_Replace(t *testing.T) {
	cal := NewCalendar(CalendarEntry{ID: "a", TaskID: "t", Recurrence: RecurrenceDaily})
	cal.Replace([]CalendarEntry{
		{ID: "b", TaskID: "u", Recurrence: RecurrenceDaily},
	})

	entries := cal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ID)
}

func TestScheduler_MaterializeRecurring(t *testing.T) {
	s := newTestScheduler(t, &AgentProfile{ID: "dev"})
	s.AddTemplate(&Task{ID: "standup", Attendees: []string{"dev"}, RoundBudget: 1})

	day1 := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	entry := CalendarEntry{ID: "c1", TaskID: "standup", Recurrence: RecurrenceDaily}

	first, err := s.Materialize(entry, day1)
	require.NoError(t, err)
	assert.Equal(t, "standup@2026-08-30", first.ID)
	assert.Equal(t, TaskCreated, first.State)
	assert.Equal(t, day1, first.ScheduledStart)

	second, err := s.Materialize(entry, day2)
	require.NoError(t, err)
	assert.Equal(t, "standup@2026-08-31", second.ID)

	_, stillTemplate := s.Template("standup")
	assert.True(t, stillTemplate, "recurring templates are never consumed")
}

func TestScheduler_MaterializeOneShotConsumesTemplate(t *testing.T) {
	s := newTestScheduler(t, &AgentProfile{ID: "dev"})
	s.AddTemplate(&Task{ID: "kickoff"})

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	entry := CalendarEntry{ID: "c1", TaskID: "kickoff", Recurrence: RecurrenceNone}

	inst, err := s.Materialize(entry, day)
	require.NoError(t, err)
	assert.Equal(t, "kickoff", inst.ID)

	_, stillTemplate := s.Template("kickoff")
	assert.False(t, stillTemplate)

	_, err = s.Materialize(entry, day)
	assert.Error(t, err, "a consumed one-shot cannot fire again")
}
