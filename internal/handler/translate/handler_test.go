package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	translateService "github.com/zhouzirui/health-assistant/backend/internal/service/translate"
)

type fakeProvider struct {
	out    string
	err    error
	source language.Tag
	target language.Tag
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Translate(_ context.Context, text string, source, target language.Tag) (string, error) {
	p.source, p.target = source, target
	return p.out, p.err
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/translate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func router(p translateService.Provider) *chi.Mux {
	r := chi.NewRouter()
	New(p).RegisterRoutes(r)
	return r
}

func TestTranslateSuccess(t *testing.T) {
	p := &fakeProvider{out: "HPV কী?"}
	resp := post(router(p), `{"text":"What is HPV?","sourceLang":"en","targetLang":"bn"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out translateService.Response
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if out.TranslatedText != "HPV কী?" {
		t.Fatalf("translatedText = %q", out.TranslatedText)
	}
	if p.source != language.English || p.target != language.Bengali {
		t.Fatalf("pair = %s->%s", p.source, p.target)
	}
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider translateService.Provider
		body     string
		status   int
	}{
		{"not configured", nil, `{"text":"hi","sourceLang":"en","targetLang":"bn"}`, http.StatusServiceUnavailable},
		{"missing text", &fakeProvider{}, `{"sourceLang":"en","targetLang":"bn"}`, http.StatusBadRequest},
		{"unknown language", &fakeProvider{}, `{"text":"hi","sourceLang":"en","targetLang":"fr"}`, http.StatusBadRequest},
		{"upstream error", &fakeProvider{err: errors.New("model down")}, `{"text":"hi","sourceLang":"en","targetLang":"bn"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := post(router(tt.provider), tt.body); resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestPrimaryClientAgainstHandler(t *testing.T) {
	server := httptest.NewServer(http.StripPrefix("/api", router(&fakeProvider{out: "স্তন"})))
	defer server.Close()

	got, err := translateService.NewPrimaryClient(server.URL).Translate(context.Background(), "breast", language.English, language.Bengali)
	if err != nil {
		t.Fatalf("primary client: %v", err)
	}
	if got != "স্তন" {
		t.Fatalf("got %q", got)
	}
}
