package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Broker is an in-process broker for single-node runs and tests. Delivery is
// best effort: a subscriber whose buffer is full drops the oldest signal,
// which is safe because consumers treat messages as invalidation hints.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string][]chan []byte
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]chan []byte)}
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- payload:
			default:
			}
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("broker is closed")
	}
	ch := make(chan []byte, 100)
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	out := make(chan []byte, 100)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.remove(channel, ch)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					b.remove(channel, ch)
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Broker) remove(channel string, target chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	chans := b.subs[channel]
	for i, ch := range chans {
		if ch == target {
			b.subs[channel] = append(chans[:i], chans[i+1:]...)
			return
		}
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = make(map[string][]chan []byte)
	return nil
}
