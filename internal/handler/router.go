package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	captureHandler "github.com/zhouzirui/health-assistant/backend/internal/handler/capture"
	"github.com/zhouzirui/health-assistant/backend/internal/handler/chat"
	notificationHandler "github.com/zhouzirui/health-assistant/backend/internal/handler/notification"
	qaHandler "github.com/zhouzirui/health-assistant/backend/internal/handler/qa"
	"github.com/zhouzirui/health-assistant/backend/internal/handler/speech"
	"github.com/zhouzirui/health-assistant/backend/internal/handler/stream"
	translateHandler "github.com/zhouzirui/health-assistant/backend/internal/handler/translate"
	middlewarePkg "github.com/zhouzirui/health-assistant/backend/internal/middleware"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	chatService "github.com/zhouzirui/health-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/service/notify"
	translateService "github.com/zhouzirui/health-assistant/backend/internal/service/translate"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Services are the core services behind the routes. Optional ones may be nil,
// which degrades their endpoints.
type Services struct {
	Orchestrator  *chatService.Orchestrator
	Playback      chat.Playback
	Capture       captureHandler.Controller
	Notifications *notify.Queue
	Events        *events.Broker
	Answerer      answer.Answerer

	// optional
	Translator translateService.Provider
	Speech     speech.SpeechService
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// QA keeps its historical path outside /api
	qaHandler.New(svc.Answerer).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		chat.New(svc.Orchestrator, svc.Playback).RegisterRoutes(api)
		captureHandler.New(svc.Capture).RegisterRoutes(api)
		notificationHandler.New(svc.Notifications).RegisterRoutes(api)
		stream.New(svc.Events, snapshotFunc(svc)).RegisterRoutes(api)
		translateHandler.New(svc.Translator).RegisterRoutes(api)

		if svc.Speech != nil {
			speech.New(svc.Speech).RegisterRoutes(api)
		} else {
			api.HandleFunc("/speech/*", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "speech service not configured")
			})
		}
	})

	return r
}

// snapshotFunc builds the full state a new SSE client receives first.
func snapshotFunc(svc Services) func() any {
	return func() any {
		out := map[string]any{
			"conversation": svc.Orchestrator.Snapshot(),
			"history":      svc.Orchestrator.History().List(),
			"capture":      svc.Capture.Status(),
		}
		out["speaking"] = -1
		if svc.Playback != nil {
			if idx, ok := svc.Playback.Speaking(); ok {
				out["speaking"] = idx
			}
		}
		if n, ok := svc.Notifications.Current(); ok {
			out["notification"] = n
		}
		return out
	}
}
