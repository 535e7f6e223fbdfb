package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/wipay/subscriber-api/internal/realtime"
)

// StreamSnapshots bridges a subscription onto a server-sent-event response.
// Every delivery is a complete snapshot, so when the client falls behind the
// oldest queued snapshot is dropped in favor of the newest.
func StreamSnapshots[T any](c *gin.Context, subscribe func(fn func(T)) (realtime.CancelFunc, error)) {
	ctx := c.Request.Context()
	snapshots := make(chan T, 8)

	cancel, err := subscribe(func(snapshot T) {
		for {
			select {
			case snapshots <- snapshot:
				return
			default:
				select {
				case <-snapshots:
				default:
				}
			}
		}
	})
	if err != nil {
		c.Error(err)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot := <-snapshots:
			c.SSEvent("snapshot", snapshot)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
