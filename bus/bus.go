// Package bus implements the priority-aware event bus decoupling the
// scheduler and turn runtime from individual participants.
//
// Delivery contract: Publish never blocks the caller; each subscriber receives
// every matching event exactly once within a single run, in priority order
// with FIFO ordering inside a priority band. The queue itself is unbounded;
// backpressure is applied through a per-round in-flight ceiling that fails
// Publish with core.ErrQueueSaturated, which callers treat as retryable on the
// next round.
package bus

import (
	"container/heap"
	"context"
	"sync"

	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/logging"
)

// Filter selects the subset of events a subscription receives. The zero value
// matches everything.
type Filter struct {
	// Kinds restricts delivery to the listed event kinds. Empty matches all kinds.
	Kinds []core.EventKind
	// Agent, when set, restricts delivery to events addressed to that agent:
	// targeted events naming it plus broadcasts from other senders.
	Agent string
	// MinPriority drops events below the given band.
	MinPriority core.Priority
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(ev core.Event) bool {
	if ev.Priority < f.MinPriority {
		return false
	}
	if f.Agent != "" && !ev.For(f.Agent) {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if ev.Kind == k {
			return true
		}
	}
	return false
}

// Subscription is a registered consumer stream. Events arrive on the channel
// returned by Events until the subscription is cancelled or the bus closes.
type Subscription struct {
	id     string
	filter Filter
	ch     chan core.Event
	done   chan struct{}
}

// Events returns the receive side of the subscription stream.
func (s *Subscription) Events() <-chan core.Event { return s.ch }

// Options configures a Bus instance.
type Options struct {
	// Ceiling caps the number of events published inside one round window.
	// Publish fails with core.ErrQueueSaturated once the ceiling is reached;
	// the window resets at the next round boundary. Zero means unlimited.
	Ceiling int

	// BufferSize sets the per-subscriber channel buffer.
	BufferSize int

	// LogSize bounds the in-memory audit trail of published events. Zero
	// disables the trail.
	LogSize int

	// Logger defaults to NoOpLogger when nil.
	Logger logging.Logger
}

// DefaultOptions provides conservative defaults suitable for tests and small
// simulations.
var DefaultOptions = Options{
	Ceiling:    256,
	BufferSize: 64,
	LogSize:    1000,
}

// queued pairs an event with its enqueue sequence for FIFO tie-breaking.
type queued struct {
	ev  core.Event
	seq uint64
}

// eventHeap is a max-heap on priority, FIFO within a band.
type eventHeap []queued

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Priority != h[j].ev.Priority {
		return h[i].ev.Priority > h[j].ev.Priority
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(queued)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Bus is the in-process event bus. It is safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	queue  eventHeap
	seq    uint64
	window int
	subs   map[string]*Subscription
	log    []core.Event
	opts   Options
	logger logging.Logger

	notify  chan struct{}
	done    chan struct{}
	started bool
	wg      sync.WaitGroup
}

// New constructs a Bus. Call Start before publishing to begin delivery.
func New(optFns ...func(o *Options)) *Bus {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Bus{
		subs:   make(map[string]*Subscription),
		opts:   opts,
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the delivery goroutine. It is an error to call Start twice.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.dispatch(ctx)
	}()
}

// Close stops delivery and closes all subscriber channels. Events still queued
// are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Publish enqueues an event without blocking. It fails with
// core.ErrQueueSaturated when the per-round ceiling has been reached.
func (b *Bus) Publish(ev core.Event) error {
	b.mu.Lock()
	if b.opts.Ceiling > 0 && b.window >= b.opts.Ceiling {
		b.mu.Unlock()
		b.logger.Warn("bus saturated, rejecting publish", "kind", string(ev.Kind), "sender", ev.Sender)
		return core.ErrQueueSaturated
	}
	b.window++
	b.seq++
	heap.Push(&b.queue, queued{ev: ev, seq: b.seq})
	if b.opts.LogSize > 0 {
		b.log = append(b.log, ev)
		if len(b.log) > b.opts.LogSize {
			b.log = b.log[len(b.log)-b.opts.LogSize:]
		}
	}
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// Subscribe registers a consumer for events matching the filter.
func (b *Bus) Subscribe(f Filter) *Subscription {
	sub := &Subscription{
		id:     core.NewID(),
		filter: f,
		ch:     make(chan core.Event, b.opts.BufferSize),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription. The event channel itself is closed by
// Close; unsubscribed consumers simply stop receiving.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.done)
	}
}

// ResetWindow opens a new in-flight window. The turn runtime calls this at
// every round boundary so saturation failures become retryable.
func (b *Bus) ResetWindow() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window = 0
}

// Pending returns the number of queued, undelivered events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Log returns a copy of the bounded audit trail of published events.
func (b *Bus) Log() []core.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Event, len(b.log))
	copy(out, b.log)
	return out
}

// dispatch drains the priority queue, delivering each event to every matching
// subscriber. Delivery to a single subscriber blocks until the subscriber
// reads or the bus shuts down; subscribers therefore own keeping their
// channels drained.
func (b *Bus) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-b.notify:
		}

		for {
			b.mu.Lock()
			if b.queue.Len() == 0 {
				b.mu.Unlock()
				break
			}
			it := heap.Pop(&b.queue).(queued)
			targets := make([]*Subscription, 0, len(b.subs))
			for _, sub := range b.subs {
				if sub.filter.Matches(it.ev) {
					targets = append(targets, sub)
				}
			}
			b.mu.Unlock()

			for _, sub := range targets {
				select {
				case <-ctx.Done():
					return
				case <-b.done:
					return
				case <-sub.done:
				case sub.ch <- it.ev:
				}
			}
			b.logger.Debug("bus delivered event", "event_id", it.ev.ID, "kind", string(it.ev.Kind), "subscribers", len(targets))
		}
	}
}
