// Package event streams record change events to HTTP clients as
// server-sent events.
package event

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kazz187/notevault/internal/eventbus"
	"github.com/kazz187/notevault/pkg/cerr"
)

const subscriberBuffer = 64

type Server struct {
	eventBus  *eventbus.Bus
	keepAlive time.Duration
}

func NewServer(eventBus *eventbus.Bus) *Server {
	return &Server{eventBus: eventBus, keepAlive: 30 * time.Second}
}

// SubscribeEvents serves GET /events. Repeated ?type= parameters restrict the
// stream to those event types and ?kind= to task or note events.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.Unimplemented, "streaming unsupported", nil)
		return
	}

	typeFilter := make(map[eventbus.EventType]struct{})
	for _, et := range r.URL.Query()["type"] {
		typeFilter[eventbus.EventType(et)] = struct{}{}
	}
	kind := r.URL.Query().Get("kind")

	subID, ch := s.eventBus.Subscribe(subscriberBuffer)
	defer s.eventBus.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if len(typeFilter) > 0 {
				if _, match := typeFilter[event.Type]; !match {
					continue
				}
			}
			if kind != "" && event.Metadata["kind"] != kind && event.Type != eventbus.EventNoteLinked && event.Type != eventbus.EventNoteUnlinked {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
