package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Subscriber is the event source.
type Subscriber interface {
	Subscribe() (<-chan events.Event, func())
}

// Handler streams assistant state changes via Server-Sent Events.
type Handler struct {
	source    Subscriber
	snapshot  func() any
	heartbeat time.Duration
}

// New creates a stream handler. snapshot, when set, is sent first so a new
// client starts from the current state.
func New(source Subscriber, snapshot func() any) *Handler {
	return &Handler{
		source:    source,
		snapshot:  snapshot,
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes mounts GET /events.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ch, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	log.Printf("[sse] client connected from %s", r.RemoteAddr)

	if h.snapshot != nil {
		if err := sse.Event("snapshot", h.snapshot()); err != nil {
			log.Printf("[sse] write snapshot: %v", err)
			return
		}
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client disconnected from %s", r.RemoteAddr)
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			err = sse.Event(evt.Type, evt)
		case t := <-ticker.C:
			err = sse.Comment("heartbeat " + t.UTC().Format(time.RFC3339))
		}
		if err != nil {
			log.Printf("[sse] write to %s failed: %v", r.RemoteAddr, err)
			return
		}
	}
}
