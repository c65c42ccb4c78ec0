package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// DefaultMyMemoryURL is the public MyMemory endpoint.
const DefaultMyMemoryURL = "https://api.mymemory.translated.net"

// MyMemoryClient is the secondary provider.
type MyMemoryClient struct {
	baseURL    string
	email      string
	httpClient *http.Client
}

var _ Provider = (*MyMemoryClient)(nil)

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus flexibleStatus `json:"responseStatus"`
	ResponseDetails string        `json:"responseDetails"`
}

// flexibleStatus accepts both 200 and "200"; the service uses either.
type flexibleStatus int

func (s *flexibleStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			*s = 0
			return nil
		}
		*s = flexibleStatus(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexibleStatus(n)
	return nil
}

// NewMyMemoryClient builds the secondary provider. email is sent as the "de"
// parameter to raise the anonymous quota and may be empty.
func NewMyMemoryClient(baseURL, email string, opts ...ClientOption) *MyMemoryClient {
	cfg := applyOptions(opts)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultMyMemoryURL
	}
	return &MyMemoryClient{
		baseURL:    baseURL,
		email:      strings.TrimSpace(email),
		httpClient: cfg.httpClient,
	}
}

func (c *MyMemoryClient) Name() string { return "mymemory" }

// Translate returns a *RejectionError when the service answered without a
// usable translation.
func (c *MyMemoryClient) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", fmt.Sprintf("%s|%s", source, target))
	if c.email != "" {
		query.Set("de", c.email)
	}
	endpoint := c.baseURL + "/get?" + query.Encode()

	var resp myMemoryResponse
	if err := utils.DoJSON(ctx, c.httpClient, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}

	if resp.ResponseStatus != http.StatusOK {
		return "", &RejectionError{Provider: c.Name(), Reason: fmt.Sprintf("status %d: %s", resp.ResponseStatus, resp.ResponseDetails)}
	}
	if strings.TrimSpace(resp.ResponseData.TranslatedText) == "" {
		return "", &RejectionError{Provider: c.Name(), Reason: "empty translatedText"}
	}
	return resp.ResponseData.TranslatedText, nil
}
