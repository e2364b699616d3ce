package bus

import (
	"sync"
)

type subscriber struct {
	id      uint64
	handler ClickHandler
}

// ClickBus fans click events out to the subscribers of the channel the
// click happened in. Delivery is synchronous and in subscription order, so a
// subscriber sees the events of its channel in the order they were
// published.
type ClickBus struct {
	subs      map[string][]subscriber
	nextID    uint64
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewClickBus() *ClickBus {
	return &ClickBus{
		subs: make(map[string][]subscriber),
	}
}

// Subscribe registers handler for clicks in channelID. The returned func
// removes the subscription; calling it more than once is harmless.
func (b *ClickBus) Subscribe(channelID string, handler ClickHandler) (func(), error) {
	if channelID == "" {
		return nil, ErrNoChannel
	}
	if handler == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.nextID++
	id := b.nextID
	b.subs[channelID] = append(b.subs[channelID], subscriber{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(channelID, id) })
	}, nil
}

func (b *ClickBus) unsubscribe(channelID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[channelID]
	for i, s := range list {
		if s.id == id {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.subs, channelID)
	} else {
		b.subs[channelID] = list
	}
}

// Publish delivers event to every subscriber of its channel and returns how
// many received it.
func (b *ClickBus) Publish(event ClickEvent) int {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0
	}
	list := make([]subscriber, len(b.subs[event.ChannelID]))
	copy(list, b.subs[event.ChannelID])
	b.mu.RUnlock()

	for _, s := range list {
		s.handler(event)
	}
	return len(list)
}

// SubscriberCount returns the number of live subscriptions (diagnostics).
func (b *ClickBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, list := range b.subs {
		n += len(list)
	}
	return n
}

// Close drops every subscription and rejects new ones.
func (b *ClickBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.subs = make(map[string][]subscriber)
		b.mu.Unlock()
	})
}
