package realtime

import (
	"sync"
)

// CancelFunc tears down a subscription. After it returns, the subscription's
// callback is never invoked again, even for a change already in flight.
type CancelFunc func()

// Hub is an explicit subscription registry keyed by topic. Mutations broadcast
// an invalidation for the topics they touch; each subscription coalesces
// pending invalidations into a single signal so slow consumers see the latest
// state rather than a backlog of intermediate ones.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers interest in a set of topics.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		hub:    h,
		topics: topics,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		set, ok := h.topics[topic]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.topics[topic] = set
		}
		set[sub] = struct{}{}
	}
	return sub
}

// Broadcast signals every subscription registered for the topic.
func (h *Hub) Broadcast(topic string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range sub.topics {
		set := h.topics[topic]
		delete(set, sub)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Subscription is a cancellation token for one registered listener.
type Subscription struct {
	hub    *Hub
	topics []string
	signal chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
}

// Signal fires when any subscribed topic changed since the last receive.
func (s *Subscription) Signal() <-chan struct{} {
	return s.signal
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Invoke runs f unless the subscription has been cancelled. The callback runs
// under the token's lock, so Cancel cannot return while f is executing and a
// completed Cancel guarantees no further invocations.
func (s *Subscription) Invoke(f func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	f()
	return true
}

// Cancel unregisters the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()

	s.hub.unregister(s)
	close(s.done)
}
