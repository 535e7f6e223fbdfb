package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wipay/subscriber-api/pkg/logger"
	"github.com/wipay/subscriber-api/pkg/messaging"
)

// Channel is the broker channel carrying change events between instances.
const Channel = "realtime.events"

// Event names the topics invalidated by one store mutation.
type Event struct {
	Topics []string `json:"topics"`
}

// Publisher fans a mutation's invalidation out through the broker so every
// instance's hub (including the local one, via its bridge) re-queries.
type Publisher struct {
	broker messaging.Broker
}

func NewPublisher(broker messaging.Broker) *Publisher {
	return &Publisher{broker: broker}
}

func (p *Publisher) Publish(ctx context.Context, topics ...string) error {
	return p.broker.Publish(ctx, Channel, Event{Topics: topics})
}

// Bridge pumps broker change events into a hub. Unlike user-visible
// subscriptions, the bridge is process infrastructure: if the broker stream
// drops it reconnects after a fixed delay.
type Bridge struct {
	broker         messaging.Broker
	hub            *Hub
	logger         *logger.Logger
	reconnectDelay time.Duration
}

func NewBridge(broker messaging.Broker, hub *Hub, logger *logger.Logger) *Bridge {
	return &Bridge{
		broker:         broker,
		hub:            hub,
		logger:         logger,
		reconnectDelay: time.Second,
	}
}

// Run blocks until ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	for {
		if err := b.pump(ctx); err != nil {
			b.logger.Error(err, "realtime bridge disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *Bridge) pump(ctx context.Context) error {
	msgs, err := b.broker.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal(payload, &event); err != nil {
				b.logger.Error(err, "malformed realtime event")
				continue
			}
			for _, topic := range event.Topics {
				b.hub.Broadcast(topic)
			}
		}
	}
}
