package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/jacktrack/internal/domain/types"
)

// heartbeatInterval keeps idle proxies from closing the stream.
const heartbeatInterval = 15 * time.Second

// StreamDependencies provides change notifications.
type StreamDependencies interface {
	Subscribe(ctx context.Context) (<-chan types.Change, error)
}

// StreamHandler serves /v1/stream as server-sent events.
type StreamHandler struct {
	deps      StreamDependencies
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps StreamDependencies) *StreamHandler {
	return &StreamHandler{deps: deps, heartbeat: heartbeatInterval}
}

// HandleStream handles GET /v1/stream. Each change is sent as an event
// named after its topic with the change as JSON data.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	ctx := r.Context()

	changes, err := h.deps.Subscribe(ctx)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
		case c, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(c)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Topic, data)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
