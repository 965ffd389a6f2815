package hub

import (
	"sync"
)

// Broker fans a payload out to every live subscriber. Delivery never
// blocks the publisher: a subscriber whose buffer is full misses the
// event.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	buffer int
}

// NewBroker creates a broker whose subscribers buffer up to buffer
// payloads.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 32
	}
	return &Broker{subs: make(map[chan []byte]struct{}), buffer: buffer}
}

// Subscribe registers a new subscriber. The returned function
// unsubscribes and closes the channel; it is safe to call more than
// once.
func (b *Broker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Broadcast delivers payload to every subscriber with room for it and
// returns how many received it.
func (b *Broker) Broadcast(payload []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for ch := range b.subs {
		select {
		case ch <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
