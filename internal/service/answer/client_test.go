package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

func TestClientAsk(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Answer: "It is never too late.", Score: 0.8, Language: language.English})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/ask", WithHTTPClient(srv.Client()))
	resp, err := client.Ask(context.Background(), Request{
		Question:         "Is 25 too late for a Pap smear?",
		Language:         language.Bengali,
		OriginalLanguage: language.English,
	})
	require.NoError(t, err)
	require.Equal(t, "It is never too late.", resp.Answer)
	require.Equal(t, language.Bengali, got.Language)
	require.Equal(t, language.English, got.OriginalLanguage)
}

func TestClientAskStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	_, err := client.Ask(context.Background(), Request{Question: "hi"})

	var statusErr *utils.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.HTTPStatusCode())
}

func TestFuncAdapter(t *testing.T) {
	var f Answerer = Func(func(_ context.Context, req Request) (Response, error) {
		return Response{Answer: req.Question}, nil
	})
	resp, err := f.Ask(context.Background(), Request{Question: "echo"})
	require.NoError(t, err)
	require.Equal(t, "echo", resp.Answer)
}
