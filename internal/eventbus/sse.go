package eventbus

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vaultstream/vaultstream/internal/logger"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// Handler serves GET /api/v1/events/subscribe as an SSE endpoint (§4.2, §6): it
// replays any events after the client's Last-Event-ID, then streams live
// events until the client disconnects.
func Handler(bus *Bus, repo interfaces.EventRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.CloneContext(c.Request.Context())

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		if lastID := c.GetHeader("Last-Event-ID"); lastID != "" {
			if id, err := strconv.ParseInt(lastID, 10, 64); err == nil {
				replayBacklog(c, repo, id)
			}
		}

		ch, cancel := bus.Subscribe(ctx)
		defer cancel()

		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-ch:
				if !ok {
					return false
				}
				writeEvent(w, event)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

func replayBacklog(c *gin.Context, repo interfaces.EventRepository, sinceID int64) {
	events, err := repo.ListSince(c.Request.Context(), sinceID, 500)
	if err != nil {
		logger.Warnf(c.Request.Context(), "sse: replay backlog failed: %v", err)
		return
	}
	for _, e := range events {
		writeEvent(c.Writer, e)
	}
	c.Writer.Flush()
}

func writeEvent(w io.Writer, e types.RealtimeEvent) {
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, string(e.Payload))
}
