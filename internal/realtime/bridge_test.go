package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wipay/subscriber-api/pkg/messaging/memory"
)

func TestBridgeFansBrokerEventsIntoHub(t *testing.T) {
	broker := memory.NewBroker()
	defer broker.Close()

	hub := NewHub()
	bridge := NewBridge(broker, hub, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	sub := hub.Subscribe("topic.a")
	defer sub.Cancel()

	publisher := NewPublisher(broker)
	require.Eventually(t, func() bool {
		require.NoError(t, publisher.Publish(ctx, "topic.a"))
		select {
		case <-sub.Signal():
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBridgeSurvivesMalformedPayload(t *testing.T) {
	broker := memory.NewBroker()
	defer broker.Close()

	hub := NewHub()
	bridge := NewBridge(broker, hub, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	sub := hub.Subscribe("topic.a")
	defer sub.Cancel()

	// A junk message must be skipped, not kill the pump.
	require.Eventually(t, func() bool {
		require.NoError(t, broker.Publish(ctx, Channel, "not an event"))
		require.NoError(t, NewPublisher(broker).Publish(ctx, "topic.a"))
		select {
		case <-sub.Signal():
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}
