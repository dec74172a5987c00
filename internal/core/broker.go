package core

import (
	"sync"

	"gwi.com/finance-chat/internal/store"
)

type HistoryEventKind string

const (
	HistoryUpserted HistoryEventKind = "upserted"
	HistoryRemoved  HistoryEventKind = "removed"
	// sent once to a new subscriber, never published
	HistorySnapshot HistoryEventKind = "snapshot"
)

// HistoryEvent carries the full entry list after a history write.
type HistoryEvent struct {
	Kind     HistoryEventKind         `json:"kind"`
	ChatID   string                   `json:"chat_id"`
	Entries  []store.ChatHistoryEntry `json:"entries"`
	Identity store.Identity           `json:"-"`
}

const subscriberBuffer = 8

// Broker fans history changes out to subscribers of the same identity.
// A slow subscriber loses its oldest pending events, never the newest.
type Broker struct {
	mu   sync.Mutex
	next int
	subs map[store.Identity]map[int]chan HistoryEvent
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[store.Identity]map[int]chan HistoryEvent)}
}

// Subscribe returns a channel of events for id and a cancel function that
// closes it.
func (b *Broker) Subscribe(id store.Identity) (<-chan HistoryEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	key := b.next
	ch := make(chan HistoryEvent, subscriberBuffer)
	if b.subs[id] == nil {
		b.subs[id] = make(map[int]chan HistoryEvent)
	}
	b.subs[id][key] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[id], key)
			if len(b.subs[id]) == 0 {
				delete(b.subs, id)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(ev HistoryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[ev.Identity] {
		select {
		case ch <- ev:
			continue
		default:
		}
		// full: drop the oldest pending event to make room
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports how many subscribers id has.
func (b *Broker) Subscribers(id store.Identity) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[id])
}
