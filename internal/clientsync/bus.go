// Package clientsync keeps unread badges in several independent views in step
// with the server and with each other.
package clientsync

import (
	"sync"
)

type Topic string

const (
	TopicChatUnread         Topic = "chat-unread-changed"
	TopicNotificationUnread Topic = "notification-unread-changed"
)

// UnreadEvent carries a fresh total. Source names the region that fetched it.
type UnreadEvent struct {
	Topic  Topic
	Total  int64
	Source string
}

type Handler func(UnreadEvent)

// Bus is an in-process publish/subscribe channel for unread totals.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic]map[uint64]Handler
	last   map[Topic]int64
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[Topic]map[uint64]Handler),
		last: make(map[Topic]int64),
	}
}

// Subscribe registers h for topic. The returned func removes exactly this
// subscription and may be called more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to a snapshot of current subscribers.
// Handlers may subscribe or unsubscribe while being called.
func (b *Bus) Publish(ev UnreadEvent) {
	b.mu.Lock()
	b.last[ev.Topic] = ev.Total
	handlers := make([]Handler, 0, len(b.subs[ev.Topic]))
	for _, h := range b.subs[ev.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Last returns the most recently published total for topic.
func (b *Bus) Last(topic Topic) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total, ok := b.last[topic]
	return total, ok
}

func (b *Bus) subscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
