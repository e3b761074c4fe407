package work

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskState_Transitions(t *testing.T) {
	assert.True(t, TaskCreated.CanTransition(TaskReady))
	assert.True(t, TaskReady.CanTransition(TaskAssigned))
	assert.True(t, TaskAssigned.CanTransition(TaskInProgress))
	assert.True(t, TaskInProgress.CanTransition(TaskCompleted))
	assert.True(t, TaskInProgress.CanTransition(TaskBlocked))
	assert.True(t, TaskBlocked.CanTransition(TaskReady))
	assert.True(t, TaskBlocked.CanTransition(TaskInProgress))

	// No skipping and no moving backwards out of terminal states.
	assert.False(t, TaskCreated.CanTransition(TaskAssigned))
	assert.False(t, TaskReady.CanTransition(TaskInProgress))
	assert.False(t, TaskCompleted.CanTransition(TaskReady))
	assert.False(t, TaskFailed.CanTransition(TaskReady))
	assert.False(t, TaskCompleted.CanTransition(TaskInProgress))
}

func TestTask_CompletedIsImmutable(t *testing.T) {
	task := &Task{ID: "t1", State: TaskCompleted}
	err := task.transition(TaskBlocked)
	require.Error(t, err)
	assert.Equal(t, TaskCompleted, task.State)
}

func TestTask_DependenciesMet(t *testing.T) {
	task := &Task{ID: "b", DependsOn: []string{"a1", "a2"}}

	assert.False(t, task.DependenciesMet(map[string]bool{"a1": true}))
	assert.True(t, task.DependenciesMet(map[string]bool{"a1": true, "a2": true}))

	noDeps := &Task{ID: "a"}
	assert.True(t, noDeps.DependenciesMet(nil))
}

func TestTask_Meeting(t *testing.T) {
	assert.False(t, (&Task{ID: "solo"}).Meeting())
	assert.True(t, (&Task{ID: "standup", Attendees: []string{"a", "b"}}).Meeting())
}

func TestTerminal(t *testing.T) {
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.False(t, TaskBlocked.Terminal())
	assert.False(t, TaskInProgress.Terminal())
}
