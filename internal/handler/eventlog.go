package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/userhub/userhub/internal/eventlog"
	"github.com/userhub/userhub/internal/handler/dto"
)

// maxEventReadLimit caps a single event log read.
const maxEventReadLimit = 100

// EventLogHandler exposes the durable event log over HTTP.
type EventLogHandler struct {
	log    *eventlog.Log
	logger *slog.Logger
}

// NewEventLogHandler creates a new EventLogHandler.
func NewEventLogHandler(log *eventlog.Log, logger *slog.Logger) *EventLogHandler {
	return &EventLogHandler{
		log:    log,
		logger: logger,
	}
}

// PublishEventRequest represents the request body for appending an event.
type PublishEventRequest struct {
	Topic   string          `json:"topic"`
	Key     string          `json:"key,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Publish handles POST /api/v1/events.
func (h *EventLogHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Topic == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_TOPIC", "Topic is required")
		return
	}

	id, err := h.log.Append(r.Context(), req.Topic, req.Key, req.Payload)
	if err != nil {
		h.logger.Error("event_append_failed", "topic", req.Topic, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "EVENT_LOG_UNAVAILABLE", "Event log is unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "topic": req.Topic})
}

// Topics handles GET /api/v1/events.
func (h *EventLogHandler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.log.Topics(r.Context())
	if err != nil {
		h.logger.Error("event_topics_failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "EVENT_LOG_UNAVAILABLE", "Event log is unavailable")
		return
	}
	if topics == nil {
		topics = []string{}
	}

	writeJSON(w, http.StatusOK, map[string][]string{"topics": topics})
}

// Read handles GET /api/v1/events/{topic}.
func (h *EventLogHandler) Read(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")

	limit := int64(0)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 || parsed > maxEventReadLimit {
			h.writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "Limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	entries, err := h.log.Read(r.Context(), topic, limit)
	if err != nil {
		h.logger.Error("event_read_failed", "topic", topic, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "EVENT_LOG_UNAVAILABLE", "Event log is unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topic":  topic,
		"events": entries,
	})
}

func (h *EventLogHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
