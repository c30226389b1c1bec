package sse

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	heartbeatInterval = 30 * time.Second
	// writeDeadline bounds each event write. Narration highlight events fire
	// roughly twice a second, so a stalled client is detected quickly.
	writeDeadline = 60 * time.Second
)

// Handler serves the event stream at GET /api/v1/events.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// ServeHTTP registers the caller with the manager and streams its events
// until the client disconnects or the server shuts down.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming unsupported by response writer", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.manager.Connect()
	if err != nil {
		h.logger.Error("failed to register event stream client", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With(slog.String("client_id", client.ID))

	if err := h.writeEvent(w, rc, "connected", map[string]string{"client_id": client.ID}); err != nil {
		log.Warn("client gone before handshake completed")
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event := <-client.EventChan:
			if err := h.writeEvent(w, rc, string(event.Type), event); err != nil {
				log.Info("client disconnected during send")
				return
			}
		case <-heartbeat.C:
			ev := NewHeartbeatEvent()
			if err := h.writeEvent(w, rc, string(ev.Type), ev); err != nil {
				log.Info("client disconnected during heartbeat")
				return
			}
		case <-client.Done:
			log.Info("event stream closed by manager")
			return
		case <-r.Context().Done():
			log.Debug("client context canceled")
			return
		}
	}
}

// writeEvent emits a single "event:/data:" frame and flushes it.
func (h *Handler) writeEvent(w http.ResponseWriter, rc *http.ResponseController, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Not all ResponseWriters support deadlines; a refusal is not fatal.
	if err := rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
