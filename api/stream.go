package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"songfetch/progress"
)

const (
	sinkBuffer       = 64
	wsWriteWait      = 10 * time.Second
	defaultHeartbeat = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Handler) heartbeat() time.Duration {
	if h.cfg.SSEHeartbeat > 0 {
		return h.cfg.SSEHeartbeat
	}
	return defaultHeartbeat
}

// handleProgress streams a job's progress as server-sent events. The stream
// ends after a terminal event or when the client goes away.
func (h *Handler) handleProgress(c *gin.Context) {
	jobID := c.Query("id")
	if jobID == "" {
		c.String(http.StatusBadRequest, "Missing id")
		return
	}

	sink := progress.NewChanSink(sinkBuffer)
	sub := h.registry.Subscribe(jobID, sink)
	defer h.registry.Unsubscribe(sub)
	h.logger.Debug("progress subscriber attached", "job", jobID, "transport", "sse")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sink.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("could not encode progress event", "job", jobID, "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			c.Writer.Flush()
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			h.logger.Debug("progress subscriber left", "job", jobID)
			return
		}
	}
}

// handleProgressWS streams the same events as handleProgress over a websocket,
// one JSON text frame per event.
func (h *Handler) handleProgressWS(c *gin.Context) {
	jobID := c.Query("id")
	if jobID == "" {
		c.String(http.StatusBadRequest, "Missing id")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "job", jobID, "error", err)
		return
	}
	defer conn.Close()

	sink := progress.NewChanSink(sinkBuffer)
	sub := h.registry.Subscribe(jobID, sink)
	defer h.registry.Unsubscribe(sub)
	h.logger.Debug("progress subscriber attached", "job", jobID, "transport", "websocket")

	// Reads only serve to notice the peer closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat())
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sink.Events():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-c.Request.Context().Done():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
