package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/events"
)

// eventBuffer is the per-client queue; events beyond it are dropped
const eventBuffer = 100

// heartbeatInterval keeps idle streams open through proxies
var heartbeatInterval = 30 * time.Second

// EventsStreamHandler streams dashboard events over Server-Sent Events
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// parseTypes reads the optional comma-separated "types" filter. An empty
// filter selects every event type.
func parseTypes(filter string) []events.EventType {
	if filter == "" {
		return events.AllTypes
	}
	var out []events.EventType
	for _, t := range strings.Split(filter, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, events.EventType(t))
		}
	}
	return out
}

// subscribe forwards bus events into a buffered channel without ever blocking
// the publisher
func subscribe(bus *events.Bus, types []events.EventType, log zerolog.Logger) (<-chan *events.Event, func()) {
	eventChan := make(chan *events.Event, eventBuffer)
	if bus == nil {
		return eventChan, func() {}
	}

	unsubscribe := bus.Subscribe(func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}, types...)
	return eventChan, unsubscribe
}

// eventPayload is the wire form of an event
func eventPayload(event *events.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":        event.ID,
		"type":      string(event.Type),
		"module":    event.Module,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Data,
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE)
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// the server-wide write timeout does not apply to long-lived streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := subscribe(h.eventBus, parseTypes(typesFilter), h.log)
	defer unsubscribe()

	h.log.Info().Str("types_filter", typesFilter).Msg("Client connected to event stream")

	fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to dashboard event stream",
	}))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			fmt.Fprintf(w, "id: %s\ndata: %s\n\n", event.ID, h.encodeEvent(eventPayload(event)))
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// encodeEvent encodes an event map to JSON string
func (h *EventsStreamHandler) encodeEvent(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
