package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	chatservice "github.com/zhouzirui/health-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/service/playback"
)

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text string, _, target language.Tag) string {
	return "[" + string(target) + "] " + text
}

type fakePlayback struct {
	mu     sync.Mutex
	spoken []int
	err    error
}

func (p *fakePlayback) Speak(_ context.Context, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.spoken = append(p.spoken, index)
	return nil
}

func (p *fakePlayback) Speaking() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.spoken) == 0 {
		return 0, false
	}
	return p.spoken[len(p.spoken)-1], true
}

func setupRouter(ask answer.Func, pb Playback) (*chi.Mux, *chatservice.Orchestrator) {
	orch := chatservice.NewOrchestrator(chatservice.NewHistory(nil), echoTranslator{}, ask, nil, nil)
	r := chi.NewRouter()
	New(orch, pb).RegisterRoutes(r)
	return r, orch
}

func okAnswer(_ context.Context, req answer.Request) (answer.Response, error) {
	return answer.Response{Answer: "Answer to: " + req.Question}, nil
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSubmitAppendsPair(t *testing.T) {
	r, orch := setupRouter(okAnswer, &fakePlayback{})

	resp := do(r, http.MethodPost, "/conversation/submit", `{"text":"What is HPV?"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var outcome chatservice.Outcome
	if err := json.Unmarshal(resp.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Failed || outcome.Bot.Text == "" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if orch.History().Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", orch.History().Len())
	}

	hist := do(r, http.MethodGet, "/conversation/history", "")
	var body struct {
		Messages []json.RawMessage `json:"messages"`
	}
	_ = json.Unmarshal(hist.Body.Bytes(), &body)
	if len(body.Messages) != 2 {
		t.Fatalf("history returned %d messages", len(body.Messages))
	}
}

func TestSubmitUsesInputBuffer(t *testing.T) {
	r, orch := setupRouter(okAnswer, nil)

	if resp := do(r, http.MethodPut, "/conversation/input", `{"text":"breast cancer symptoms"}`); resp.Code != http.StatusOK {
		t.Fatalf("set input: %d", resp.Code)
	}
	if orch.Input() != "breast cancer symptoms" {
		t.Fatalf("input = %q", orch.Input())
	}

	resp := do(r, http.MethodPost, "/conversation/submit", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if orch.Input() != "" {
		t.Fatalf("input must be cleared, got %q", orch.Input())
	}
}

func TestSubmitEmptyIsBadRequest(t *testing.T) {
	r, _ := setupRouter(okAnswer, nil)
	resp := do(r, http.MethodPost, "/conversation/submit", `{"text":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSubmitWhileBusyConflicts(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	blocking := func(ctx context.Context, req answer.Request) (answer.Response, error) {
		close(entered)
		<-release
		return answer.Response{Answer: "done"}, nil
	}
	r, _ := setupRouter(blocking, nil)

	done := make(chan int)
	go func() {
		done <- do(r, http.MethodPost, "/conversation/submit", `{"text":"first"}`).Code
	}()
	<-entered

	resp := do(r, http.MethodPost, "/conversation/submit", `{"text":"second"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	state := do(r, http.MethodGet, "/conversation/state", "")
	var st StateResponse
	_ = json.Unmarshal(state.Body.Bytes(), &st)
	if st.State != chatservice.StateSubmitting {
		t.Fatalf("state = %s", st.State)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first submit got %d", code)
	}
}

func TestPlaybackRoutes(t *testing.T) {
	pb := &fakePlayback{}
	r, _ := setupRouter(okAnswer, pb)

	if resp := do(r, http.MethodPost, "/playback/abc", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad index, got %d", resp.Code)
	}

	if resp := do(r, http.MethodPost, "/playback/1", ""); resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	state := do(r, http.MethodGet, "/conversation/state", "")
	var st StateResponse
	_ = json.Unmarshal(state.Body.Bytes(), &st)
	if st.Speaking != 1 {
		t.Fatalf("speaking = %d", st.Speaking)
	}

	// 朗读只能被新的朗读请求打断
	if resp := do(r, http.MethodDelete, "/playback", ""); resp.Code < http.StatusBadRequest {
		t.Fatalf("expected no stop route, got %d", resp.Code)
	}
	if idx, ok := pb.Speaking(); !ok || idx != 1 {
		t.Fatalf("speaking = %d,%v", idx, ok)
	}

	pb.err = playback.ErrNoSuchMessage
	if resp := do(r, http.MethodPost, "/playback/9", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	pb.err = playback.ErrEmptyText
	if resp := do(r, http.MethodPost, "/playback/0", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
