package application

import (
	"log/slog"
	"sync"
	"time"
)

// EventType names a store change.
type EventType string

const (
	EventStoreInitialized EventType = "store.initialized"
	EventAccountCreated   EventType = "account.created"
	EventAccountDeleted   EventType = "account.deleted"
	EventAccountUpdated   EventType = "account.updated"
	EventAccountsSynced   EventType = "accounts.synced"
)

// Event is a notification published by the Store.
type Event struct {
	Type     EventType `json:"type"`
	Accounts []string  `json:"accounts,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier fans events out to subscribers. Each subscriber owns a buffered
// channel; a full subscriber misses events rather than blocking publishers.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewNotifier creates a Notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns its channel and an unsubscribe
// func. The unsubscribe func closes the channel and is safe to call twice.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, buffer)
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber without blocking.
func (n *Notifier) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for id, ch := range n.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("event dropped for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
