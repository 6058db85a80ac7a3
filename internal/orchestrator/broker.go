package orchestrator

import (
	"sync"

	"github.com/seantiz/geodig/internal/model"
)

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Event types published over the broker.
const (
	EventResult  = "result"
	EventOutcome = "outcome"
)

// Event is one item streamed from an async orchestration: a matched result
// record as it arrives, or the final aggregate outcome. Exactly one of
// Record and Outcome is set, per Type.
type Event struct {
	Type    string
	Record  *model.ResultRecord
	Outcome *model.AggregateOutcome
}

// EventBroker manages per-correlation-ID event streaming to subscribers.
// It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after an orchestration finishes) receive a closed channel
// instead of blocking forever. Each marker is a few bytes, which is
// acceptable for the expected request volume.
type EventBroker struct {
	mu     sync.Mutex
	topics map[string]*eventTopic
}

type eventTopic struct {
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{
		topics: make(map[string]*eventTopic),
	}
}

// Subscribe returns a channel that receives events for the given correlation
// ID and an unsubscribe function. If the orchestration has already finished
// (Close was called), the returned channel is immediately closed.
func (b *EventBroker) Subscribe(correlationID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[correlationID]
	if !ok {
		t = &eventTopic{subs: make(map[int]chan Event)}
		b.topics[correlationID] = t
	}

	ch := make(chan Event, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an event to all subscribers of the given correlation ID.
// Events are dropped for subscribers whose buffers are full so that a slow
// reader never blocks collection.
func (b *EventBroker) Publish(correlationID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[correlationID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close signals that no more events will be published for the given
// correlation ID. All subscriber channels are closed and future Subscribe
// calls return a closed channel.
func (b *EventBroker) Close(correlationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[correlationID]
	if !ok {
		// Create a closed marker so late subscribers get a closed channel.
		b.topics[correlationID] = &eventTopic{subs: make(map[int]chan Event), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
