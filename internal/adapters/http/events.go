package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const eventHeartbeat = 15 * time.Second

// streamEvents relays hub events as server-sent events until the client goes away.
func (rt *Router) streamEvents(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Events == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live events are not configured"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	events, cancel := rt.deps.Events.Subscribe(rt.cfg.EventBuffer)
	defer cancel()
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.EventSubscriberConnected()
		defer rt.deps.Metrics.EventSubscriberDisconnected()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(eventHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				slog.Warn("event_encode_failed", "type", event.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
