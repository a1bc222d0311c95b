package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/userhub/userhub/internal/handler/dto"
	"github.com/userhub/userhub/internal/notify"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// SubscriptionHandler streams user change events over Server-Sent Events.
type SubscriptionHandler struct {
	broker *notify.Broker
	logger *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(broker *notify.Broker, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		broker: broker,
		logger: logger,
	}
}

// Stream handles GET /api/v1/subscriptions/{topic}.
//
// The stream is infinite: it ends only when the client disconnects or
// the server shuts down. Events missed while disconnected are gone;
// reconnecting starts a fresh subscription.
func (h *SubscriptionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	topic, ok := notify.ParseTopic(chi.URLParam(r, "topic"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Unknown subscription topic",
			Code:  "UNKNOWN_TOPIC",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Streaming not supported",
			Code:  "STREAMING_UNSUPPORTED",
		})
		return
	}

	events, cancel := h.broker.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("subscription_opened", "topic", string(topic))
	defer h.logger.Info("subscription_closed", "topic", string(topic))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case user, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(dto.ToUserResponse(&user))
			if err != nil {
				h.logger.Error("marshal event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
