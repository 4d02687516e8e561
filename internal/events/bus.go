package events

import (
	"sync"
)

// Change describes a committed write in terms of the tables it touched.
// Live queries re-run when any table they read appears in a change.
type Change struct {
	Tables []string `json:"tables"`
}

// Touches reports whether the change includes any of the given tables.
func (c Change) Touches(tables ...string) bool {
	for _, want := range tables {
		for _, got := range c.Tables {
			if got == want {
				return true
			}
		}
	}
	return false
}

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this loses intermediate notifications, which is
// safe: invalidation is level-triggered, not a change log.
const subscriberBuffer = 16

// Bus is the in-process table-change bus. Writers call Notify after a commit;
// readers Subscribe and re-run their queries on every delivered Change.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Change
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Change)}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription.
func (b *Bus) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Change, subscriberBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Notify fans a change out to all subscribers. The send never blocks; a full
// subscriber simply misses this notification.
func (b *Bus) Notify(tables ...string) {
	if len(tables) == 0 {
		return
	}

	change := Change{Tables: tables}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub <- change:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
