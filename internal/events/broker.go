// Package events fans assistant state changes out to live subscribers.
package events

import (
	"sync"
	"time"
)

// Event types published by the assistant core.
const (
	HistoryAppended       = "history.appended"
	HistorySpeaking       = "history.speaking"
	ConversationState     = "conversation.state"
	InputChanged          = "input.changed"
	CaptureState          = "capture.state"
	NotificationShown     = "notification.shown"
	NotificationDismissed = "notification.dismissed"
)

const subscriberBuffer = 32

// Event is a single state change.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

// Publisher is implemented by Broker; components depend on this instead.
type Publisher interface {
	Publish(eventType string, data any)
}

// Broker is an in-memory pub/sub hub.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event.
func (b *Broker) Publish(eventType string, data any) {
	if b == nil {
		return
	}
	evt := Event{Type: eventType, Data: data, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports the number of live subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Nop discards every event.
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) Publish(string, any) {}
