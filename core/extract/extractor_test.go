package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TuneCrate/model"
)

func chatServer(t *testing.T, content string, capture *model.OpenAIChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}]}`, content)
	}))
}

func newTestExtractor(baseURL string) *Extractor {
	return NewExtractor(&ExtractorConfig{
		APIBaseURL: baseURL,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxTokens:  256,
	})
}

func TestExtractParsesValidOutput(t *testing.T) {
	var req model.OpenAIChatRequest
	srv := chatServer(t, `{"title":"Yesterday","artist":"The Beatles"}`, &req)
	defer srv.Close()

	guess, err := newTestExtractor(srv.URL).Extract(context.Background(), "01 - the beatles - yesterday.mp3")

	require.NoError(t, err)
	assert.Equal(t, "Yesterday", guess.Title)
	assert.Equal(t, "The Beatles", guess.Artist)

	// The request carries the schema constraint and the filename.
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
	require.NotNil(t, req.ResponseFormat.JSONSchema)
	assert.True(t, req.ResponseFormat.JSONSchema.Strict)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "01 - the beatles - yesterday.mp3", req.Messages[1].Content)
}

func TestExtractRejectsMalformedJSON(t *testing.T) {
	srv := chatServer(t, `the title is Yesterday by The Beatles`, nil)
	defer srv.Close()

	_, err := newTestExtractor(srv.URL).Extract(context.Background(), "x.mp3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestExtractRejectsEmptyFields(t *testing.T) {
	srv := chatServer(t, `{"title":"", "artist":"The Beatles"}`, nil)
	defer srv.Close()

	_, err := newTestExtractor(srv.URL).Extract(context.Background(), "x.mp3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing title or artist")
}

func TestExtractRejectsWhitespaceOnlyFields(t *testing.T) {
	srv := chatServer(t, `{"title":"  ", "artist":" "}`, nil)
	defer srv.Close()

	_, err := newTestExtractor(srv.URL).Extract(context.Background(), "x.mp3")

	assert.Error(t, err)
}

func TestExtractNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestExtractor(srv.URL).Extract(context.Background(), "x.mp3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestExtractNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	_, err := newTestExtractor(srv.URL).Extract(context.Background(), "x.mp3")

	assert.Error(t, err)
}
