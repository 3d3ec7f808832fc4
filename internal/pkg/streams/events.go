package streams

import (
	"sync"
	"time"
)

// Event describes a state change of one stream. Events for a single stream
// are published in mutation order; subscribers that fall behind lose events
// rather than stalling the registry.
type Event struct {
	StreamID    uint      `json:"stream_id"`
	Status      string    `json:"status"`
	ViewerCount int       `json:"viewer_count"`
	MaxViewers  int       `json:"max_viewers"`
	At          time.Time `json:"at"`
}

// Broadcaster fans stream events out to any number of subscribers without
// the registry knowing about them individually.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns the event channel plus an unsubscribe function. Unsubscribing
// closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the event to every subscriber. The send is non-blocking;
// a full subscriber buffer drops the event for that subscriber only.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unsubscribes everyone and closes their channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
