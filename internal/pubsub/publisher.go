// Package pubsub provides the in-process event fanout used to push speech,
// thoughts, building, and code-execution activity to real-time consumers.
package pubsub

import (
	"sync"
)

// Publisher is the fanout capability consumed by the core.
type Publisher interface {
	Publish(topic string, payload any)
}

// Message is one published item.
type Message struct {
	Topic   string
	Payload any
}

// Broker is an in-process Publisher with buffered subscribers. Slow
// subscribers drop messages instead of blocking the world loop.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
	closed bool
}

type subscription struct {
	topic string // "" subscribes to every topic
	ch    chan Message
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]subscription)}
}

// Subscribe registers a buffered channel for the given topic. An empty topic
// receives everything. Returns the subscriber id and the receive channel.
func (b *Broker) Subscribe(topic string, buffer int) (int, <-chan Message) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Message, buffer)
	b.subs[id] = subscription{topic: topic, ch: ch}
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Publish delivers payload to every matching subscriber without blocking.
func (b *Broker) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	msg := Message{Topic: topic, Payload: payload}
	for _, sub := range b.subs {
		if sub.topic != "" && sub.topic != topic {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// Subscriber buffer full; drop for slow consumers.
		}
	}
}

// Close closes every subscriber channel. Publish becomes a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// Nop returns a publisher that discards everything.
func Nop() Publisher {
	return nopPublisher{}
}
