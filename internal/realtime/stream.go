package realtime

import (
	"context"

	"github.com/wipay/subscriber-api/pkg/logger"
)

// Stream runs the live-snapshot loop shared by every subscribe operation: an
// immediate synchronous snapshot, then a fresh full snapshot after each topic
// invalidation. The snapshot query runs outside the token lock; delivery runs
// inside it, so the cancellation guarantee of Subscription.Invoke holds.
//
// A failed initial query surfaces to the caller. A failed re-query terminates
// the subscription after logging: the listener is left unsubscribed and the
// consumer keeps its last snapshot, there is no automatic resubscribe.
func Stream[T any](
	ctx context.Context,
	hub *Hub,
	log *logger.Logger,
	query func(context.Context) (T, error),
	deliver func(T),
	topics ...string,
) (CancelFunc, error) {
	sub := hub.Subscribe(topics...)

	snapshot, err := query(ctx)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	if !sub.Invoke(func() { deliver(snapshot) }) {
		return sub.Cancel, nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case <-sub.Done():
				return
			case <-sub.Signal():
			}

			snapshot, err := query(ctx)
			if err != nil {
				log.Error(err, "snapshot query failed, dropping subscription")
				sub.Cancel()
				return
			}
			if !sub.Invoke(func() { deliver(snapshot) }) {
				return
			}
		}
	}()

	return sub.Cancel, nil
}
