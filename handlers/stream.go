package handlers

import (
	"io"
	"time"

	"marketlink/services/live"

	"github.com/gin-gonic/gin"
)

// stream writes every update as an SSE event named event, and an "error" event for
// upstream failures, until the client disconnects or updates closes.
func stream[T any](c *gin.Context, event string, updates <-chan live.Update[T]) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case u, ok := <-updates:
			if !ok {
				return false
			}
			if u.Err != nil {
				c.SSEvent("error", gin.H{"error": u.Err.Error()})
				return true
			}
			c.SSEvent(event, u.Value)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
