package playback

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Synthesizer turns text into mp3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang language.Tag) ([]byte, error)
}

// SynthesisError carries the server supplied reason for a failed synthesis.
type SynthesisError struct {
	StatusCode int
	Detail     string
}

func (e *SynthesisError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("synthesis failed (%d): %s", e.StatusCode, e.Detail)
	}
	return "synthesis failed: " + e.Detail
}

var errNoAudioContent = errors.New("synthesis response has no audio content")

type synthesizeRequest struct {
	Text     string       `json:"text"`
	Language language.Tag `json:"language"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
	Format       string `json:"format,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// HTTPSynthesizer calls /api/speech/synthesize.
type HTTPSynthesizer struct {
	endpoint   string
	httpClient *http.Client
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)

// NewHTTPSynthesizer targets {baseURL}/api/speech/synthesize. A nil client
// uses the shared default timeout.
func NewHTTPSynthesizer(baseURL string, client *http.Client) *HTTPSynthesizer {
	if client == nil {
		client = utils.NewHTTPClient(0)
	}
	return &HTTPSynthesizer{
		endpoint:   strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/speech/synthesize",
		httpClient: client,
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string, lang language.Tag) ([]byte, error) {
	var resp synthesizeResponse
	err := utils.DoJSON(ctx, s.httpClient, http.MethodPost, s.endpoint, synthesizeRequest{Text: text, Language: lang}, &resp)
	if err != nil {
		var statusErr *utils.HTTPStatusError
		if errors.As(err, &statusErr) {
			return nil, &SynthesisError{StatusCode: statusErr.StatusCode, Detail: detailFrom(statusErr.Body)}
		}
		return nil, err
	}
	if resp.AudioContent == "" {
		return nil, errNoAudioContent
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}

// detailFrom prefers "details" over "error".
func detailFrom(body string) string {
	var eb errorBody
	if err := json.Unmarshal([]byte(body), &eb); err != nil {
		return ""
	}
	if d := strings.TrimSpace(eb.Details); d != "" {
		return d
	}
	return strings.TrimSpace(eb.Error)
}
