package translate

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Provider is one networked translation tier.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text string, source, target language.Tag) (string, error)
}

// Request is the body of POST /api/translate.
type Request struct {
	Text       string       `json:"text"`
	SourceLang language.Tag `json:"sourceLang"`
	TargetLang language.Tag `json:"targetLang"`
}

// Response is the reply of POST /api/translate.
type Response struct {
	TranslatedText string `json:"translatedText"`
}

// ClientOption configures the HTTP providers.
type ClientOption func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client used by a provider.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

func applyOptions(opts []ClientOption) clientConfig {
	cfg := clientConfig{httpClient: utils.NewHTTPClient(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// PrimaryClient calls the structured translation endpoint.
type PrimaryClient struct {
	endpoint   string
	httpClient *http.Client
}

var _ Provider = (*PrimaryClient)(nil)

// NewPrimaryClient targets {baseURL}/api/translate.
func NewPrimaryClient(baseURL string, opts ...ClientOption) *PrimaryClient {
	cfg := applyOptions(opts)
	return &PrimaryClient{
		endpoint:   strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/translate",
		httpClient: cfg.httpClient,
	}
}

func (c *PrimaryClient) Name() string { return "primary" }

// Translate accepts only a successful reply that carries translatedText.
func (c *PrimaryClient) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	var resp Response
	req := Request{Text: text, SourceLang: source, TargetLang: target}
	if err := utils.DoJSON(ctx, c.httpClient, http.MethodPost, c.endpoint, req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.TranslatedText) == "" {
		return "", ErrEmptyTranslation
	}
	return resp.TranslatedText, nil
}
