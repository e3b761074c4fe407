package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent_Defaults(t *testing.T) {
	ev := NewEvent(EventAction, "ana")
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventAction, ev.Kind)
	assert.Equal(t, "ana", ev.Sender)
	assert.Equal(t, PriorityNormal, ev.Priority)
	assert.False(t, ev.Timestamp.IsZero())

	other := NewEvent(EventAction, "ana")
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestEvent_Routing(t *testing.T) {
	broadcast := NewAction("ana", "", "hello all")
	assert.True(t, broadcast.IsBroadcast())
	assert.True(t, broadcast.For("ben"))
	assert.False(t, broadcast.For("ana"), "broadcasts never return to their sender")

	targeted := NewStimulus("ana", "ben", "just you")
	assert.False(t, targeted.IsBroadcast())
	assert.True(t, targeted.For("ben"))
	assert.False(t, targeted.For("carol"))
}

func TestNewDirectiveEvent(t *testing.T) {
	ev := NewDirectiveEvent("change of plans")
	assert.Equal(t, EventDirective, ev.Kind)
	assert.Equal(t, "operator", ev.Sender)
	assert.Equal(t, PriorityInterrupt, ev.Priority)
	assert.True(t, ev.IsBroadcast())
	assert.Equal(t, "change of plans", ev.Content)
}

func TestPriorityOrdering(t *testing.T) {
	assert.Less(t, PriorityLow, PriorityNormal)
	assert.Less(t, PriorityNormal, PriorityHigh)
	assert.Less(t, PriorityHigh, PriorityInterrupt)
}
