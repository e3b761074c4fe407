package work

import (
	"sync"
	"time"
)

// DateLayout is the canonical simulated-date format used for snapshot tokens
// and calendar matching.
const DateLayout = "2006-01-02"

// Recurrence describes how often a calendar entry fires.
type Recurrence string

const (
	// RecurrenceNone fires on the entry's single date.
	RecurrenceNone Recurrence = "none"
	// RecurrenceDaily fires every simulated day.
	RecurrenceDaily Recurrence = "daily"
	// RecurrenceWeekly fires on the entry's weekday.
	RecurrenceWeekly Recurrence = "weekly"
)

// CalendarEntry schedules a task template for future simulated days. At day
// start, matching entries are re-materialized as created tasks.
type CalendarEntry struct {
	ID         string       `json:"id"`
	TaskID     string       `json:"task_id"`
	Date       string       `json:"date,omitempty"` // YYYY-MM-DD, one-shot entries
	Weekday    time.Weekday `json:"weekday,omitempty"`
	Recurrence Recurrence   `json:"recurrence"`
}

// matches reports whether the entry fires on the given simulated day.
func (e CalendarEntry) matches(day time.Time) bool {
	switch e.Recurrence {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return day.Weekday() == e.Weekday
	default:
		return e.Date == day.Format(DateLayout)
	}
}

// Calendar holds scheduled future events. Safe for concurrent reads; writes
// happen at load and restore time only.
type Calendar struct {
	mu      sync.RWMutex
	entries []CalendarEntry
}

// NewCalendar constructs a calendar with the given entries.
func NewCalendar(entries ...CalendarEntry) *Calendar {
	c := &Calendar{}
	c.entries = append(c.entries, entries...)
	return c
}

// Add appends an entry.
func (c *Calendar) Add(e CalendarEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// EntriesFor returns the entries that fire on the given simulated day, in
// insertion order.
func (c *Calendar) EntriesFor(day time.Time) []CalendarEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []CalendarEntry
	for _, e := range c.entries {
		if e.matches(day) {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a snapshot of all entries.
func (c *Calendar) Entries() []CalendarEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CalendarEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Replace swaps the full entry set; used during restore.
func (c *Calendar) Replace(entries []CalendarEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]CalendarEntry(nil), entries...)
}
