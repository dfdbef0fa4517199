package server

import (
	"fmt"
	"sync"
	"time"

	driftio "github.com/hed1ad/driftwatch/pkg/io"
)

// Subscription is one watch client's view of the event stream.
type Subscription struct {
	ID      string
	ch      chan driftio.Result
	done    chan struct{}
	closed  bool
	mu      sync.Mutex
	created time.Time
}

// C returns the channel for receiving results.
func (s *Subscription) C() <-chan driftio.Result {
	return s.ch
}

// Close closes the subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.ch)
}

// Hub fans detection results out to watch subscriptions.
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	nextID     uint64
	bufferSize int
}

// NewHub creates a hub with the given per-subscription buffer size.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		subs:       make(map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe creates a new subscription.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		ID:      fmt.Sprintf("sub-%d", h.nextID),
		ch:      make(chan driftio.Result, h.bufferSize),
		done:    make(chan struct{}),
		created: time.Now(),
	}
	h.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// Publish sends a result to every subscription. Slow subscribers with a
// full buffer miss the result rather than block the ingest path.
func (h *Hub) Publish(r driftio.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		sub.mu.Lock()
		if !sub.closed {
			select {
			case sub.ch <- r:
			default:
			}
		}
		sub.mu.Unlock()
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
