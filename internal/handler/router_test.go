package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/service/capture"
	chatService "github.com/zhouzirui/health-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/service/notify"
	"github.com/zhouzirui/health-assistant/backend/internal/service/playback"
	"github.com/zhouzirui/health-assistant/backend/internal/service/qa"
)

type identityTranslator struct{}

func (identityTranslator) Translate(_ context.Context, text string, _, _ language.Tag) string {
	return text
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	broker := events.NewBroker()
	queue := notify.NewQueue(time.Minute, broker)
	history := chatService.NewHistory(broker)

	answerer, err := qa.NewDefaultService(0.1)
	if err != nil {
		t.Fatalf("qa service: %v", err)
	}

	orch := chatService.NewOrchestrator(history, identityTranslator{}, answerer, queue, broker)
	pb := playback.NewController(history, playback.NewHTTPSynthesizer("http://127.0.0.1:1", nil), playback.DiscardPlayer{}, queue)
	ctrl := capture.NewController(capture.Unsupported{}, orch, queue, broker, language.English)

	return NewRouter(Services{
		Orchestrator:  orch,
		Playback:      pb,
		Capture:       ctrl,
		Notifications: queue,
		Events:        broker,
		Answerer:      answerer,
	})
}

func TestRouterWiring(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/conversation/state", "", http.StatusOK},
		{http.MethodGet, "/api/conversation/history", "", http.StatusOK},
		{http.MethodPut, "/api/conversation/input", `{"text":"hello"}`, http.StatusOK},
		{http.MethodGet, "/api/capture/", "", http.StatusOK},
		{http.MethodPost, "/api/capture/start", "", http.StatusNotImplemented},
		{http.MethodGet, "/api/notification", "", http.StatusOK},
		{http.MethodDelete, "/api/notification", "", http.StatusNoContent},
		{http.MethodPost, "/api/translate", `{"text":"hi","sourceLang":"en","targetLang":"bn"}`, http.StatusServiceUnavailable},
		{http.MethodPost, "/api/speech/synthesize", `{"text":"hi"}`, http.StatusServiceUnavailable},
		{http.MethodPost, "/ask", `{"question":"what is breast cancer"}`, http.StatusOK},
		{http.MethodOptions, "/api/conversation/submit", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader([]byte(tt.body)))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != tt.status {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tt.method, tt.path, tt.status, resp.Code, resp.Body.String())
		}
	}
}
