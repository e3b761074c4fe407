package core

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders event delivery. Higher values are delivered first; events
// within the same band are delivered in publish order (FIFO).
type Priority int

const (
	// PriorityLow is for housekeeping traffic (state change notifications).
	PriorityLow Priority = 0
	// PriorityNormal is the default band for agent messages and actions.
	PriorityNormal Priority = 10
	// PriorityHigh is for time sensitive traffic (escalations, deadlines).
	PriorityHigh Priority = 50
	// PriorityInterrupt is reserved for operator injected events. Nothing
	// published by an agent may outrank it.
	PriorityInterrupt Priority = 100
)

// EventKind categorizes the payload of an Event.
type EventKind string

const (
	// EventStimulus is input delivered to a participant before its turn.
	EventStimulus EventKind = "stimulus"
	// EventAction is the output a participant produced during its turn.
	EventAction EventKind = "action"
	// EventDirective carries an operator redirect message to attendees.
	EventDirective EventKind = "directive"
	// EventTaskChange announces a task lifecycle transition.
	EventTaskChange EventKind = "task_change"
	// EventAgentChange announces an agent profile mutation (suspension, skill growth).
	EventAgentChange EventKind = "agent_change"
)

// Event is the unit of communication between the scheduler, the turn runtime
// and participants. Events are ephemeral: they live only in the bus queue and
// participant histories, never in snapshots. After publication an Event must
// be treated as immutable.
//
// Target semantics: an empty Target means broadcast; a non-empty Target names
// the single recipient agent.
type Event struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	Sender    string         `json:"sender"`
	Target    string         `json:"target,omitempty"`
	Priority  Priority       `json:"priority"`
	Content   string         `json:"content,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates a bare event of the given kind authored by sender, stamped
// with a fresh ID and UTC timestamp.
func NewEvent(kind EventKind, sender string) Event {
	return Event{
		ID:        NewID(),
		Kind:      kind,
		Sender:    sender,
		Priority:  PriorityNormal,
		Timestamp: time.Now().UTC(),
	}
}

// NewStimulus creates a targeted stimulus event carrying content for one recipient.
func NewStimulus(sender, target, content string) Event {
	e := NewEvent(EventStimulus, sender)
	e.Target = target
	e.Content = content
	return e
}

// NewAction creates an action event. An empty target makes it a broadcast.
func NewAction(sender, target, content string) Event {
	e := NewEvent(EventAction, sender)
	e.Target = target
	e.Content = content
	return e
}

// NewDirectiveEvent creates the synthetic high-priority event injected after
// an operator redirect. It is always a broadcast.
func NewDirectiveEvent(message string) Event {
	e := NewEvent(EventDirective, "operator")
	e.Content = message
	e.Priority = PriorityInterrupt
	return e
}

// NewID generates a new unique identifier for events, tasks and snapshots.
func NewID() string { return uuid.NewString() }

// IsBroadcast reports whether the event is addressed to every subscriber
// rather than a single named target.
func (e Event) IsBroadcast() bool { return e.Target == "" }

// For reports whether the event should be delivered to the named agent,
// either because it is a broadcast or because it targets that agent.
// Broadcasts are never delivered back to their sender.
func (e Event) For(agent string) bool {
	if e.IsBroadcast() {
		return e.Sender != agent
	}
	return e.Target == agent
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics and numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
