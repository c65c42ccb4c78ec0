// Package answer talks to the question-answering service.
package answer

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// Request is the body of POST /ask.
type Request struct {
	Question         string       `json:"question"`
	Language         language.Tag `json:"language,omitempty"`
	OriginalLanguage language.Tag `json:"originalLanguage,omitempty"`
}

// Response is the reply of POST /ask.
type Response struct {
	Answer   string       `json:"answer"`
	Score    float64      `json:"score"`
	Language language.Tag `json:"language,omitempty"`
}

// Answerer resolves a question into an answer.
type Answerer interface {
	Ask(ctx context.Context, req Request) (Response, error)
}

// Client is the HTTP implementation of Answerer.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ Answerer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient posts to url, which is the full /ask endpoint.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSpace(url),
		httpClient: utils.NewHTTPClient(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask returns *utils.HTTPStatusError on a non-2xx reply.
func (c *Client) Ask(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if err := utils.DoJSON(ctx, c.httpClient, http.MethodPost, c.endpoint, req, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Func adapts a function to Answerer.
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Ask(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
