package api

import (
	"io"
	"time"

	"furniture-erp/internal/auth"
	"furniture-erp/internal/sse"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 30 * time.Second

// streamEvents keeps an SSE connection open and forwards hub broadcasts
// GET /api/v1/events
func (h *Handler) streamEvents(c *gin.Context) {
	client := sse.NewClient(auth.UserID(c))
	h.hub.Register(client)
	defer h.hub.Unregister(client.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	write := func(s string) bool {
		if _, err := io.WriteString(c.Writer, s); err != nil {
			return false
		}
		c.Writer.Flush()
		return true
	}

	if !write(sse.NewEvent(sse.EventConnected, gin.H{"client_id": client.ID}).Format()) {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			if !write(event.Format()) {
				return
			}
		case <-heartbeat.C:
			if !write(": keepalive\n\n") {
				return
			}
		}
	}
}
