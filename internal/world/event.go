package world

import (
	"context"
	"sort"
	"sync"

	"genesis/internal/logging"
	"genesis/internal/observability"
	"genesis/internal/pubsub"
)

// Result records whether an action was applied or refused.
type Result string

const (
	ResultAccepted Result = "accepted"
	ResultRejected Result = "rejected"
)

// Event is one append-only record in the world's history.
type Event struct {
	Tick       int64          `json:"tick"`
	Actor      string         `json:"actor"`
	Type       string         `json:"event_type"`
	Action     string         `json:"action,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Result     Result         `json:"result,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Position   Vec3           `json:"position"`
	Importance float64        `json:"importance"`
}

// Common event types.
const (
	EventAction       = "action"
	EventSpeech       = "speech"
	EventConversation = "conversation"
	EventConflict     = "conflict"
	EventCodeExecuted = "code_executed"
	EventDeath        = "death"
	EventGodAction    = "god_action"
	EventGodSpeech    = "god_speech"
	EventWorldEvent   = "world_event"
)

// EventStore persists events. Implementations serialize their own writes.
type EventStore interface {
	AppendEvent(ctx context.Context, event Event) error
}

// EventLog is the append-only per-tick event stream. Events are totally
// ordered by tick, then by insertion. Persistence failures are tolerated:
// the event stays in the in-memory window and the error is logged, so the
// tick always completes.
type EventLog struct {
	mu        sync.RWMutex
	events    []Event
	maxWindow int

	store     EventStore
	publisher pubsub.Publisher
	metrics   *observability.Metrics
	logger    logging.Logger
}

// NewEventLog creates a log keeping up to window events in memory. Store and
// publisher may be nil.
func NewEventLog(window int, store EventStore, publisher pubsub.Publisher, logger logging.Logger) *EventLog {
	if window <= 0 {
		window = 10000
	}
	if publisher == nil {
		publisher = pubsub.Nop()
	}
	return &EventLog{
		maxWindow: window,
		store:     store,
		publisher: publisher,
		logger:    logging.OrNop(logger),
	}
}

// SetMetrics enables per-type event counting.
func (l *EventLog) SetMetrics(metrics *observability.Metrics) {
	l.metrics = metrics
}

// Append records an event, publishes it on its event-type topic, and writes
// it through to the store.
func (l *EventLog) Append(ctx context.Context, event Event) {
	event.Importance = Clamp(event.Importance, 0, 1)
	l.metrics.CountEvent(event.Type)

	l.mu.Lock()
	l.events = append(l.events, event)
	if len(l.events) > l.maxWindow {
		l.events = l.events[len(l.events)-l.maxWindow:]
	}
	l.mu.Unlock()

	l.publisher.Publish(event.Type, event)

	if l.store != nil {
		if err := l.store.AppendEvent(ctx, event); err != nil {
			// Event loss is tolerated; the tick must still complete.
			l.logger.Warn("event persistence failed (tick %d, actor %s): %v", event.Tick, event.Actor, err)
		}
	}
}

// Recent returns the last n events in order.
func (l *EventLog) Recent(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]Event, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// Since returns events with tick >= since, ordered by tick then insertion.
func (l *EventLog) Since(since int64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	// Events arrive in tick order; find the first index with a binary search.
	idx := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].Tick >= since
	})
	out := make([]Event, len(l.events)-idx)
	copy(out, l.events[idx:])
	return out
}

// CountSignificantSince counts events at or above the importance floor with
// tick >= since. The god loop uses this for stagnation detection.
func (l *EventLog) CountSignificantSince(since int64, minImportance float64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Tick < since {
			break
		}
		if l.events[i].Importance >= minImportance {
			count++
		}
	}
	return count
}

// Len returns the number of events in the in-memory window.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
