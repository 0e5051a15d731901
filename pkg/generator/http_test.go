package generator

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressline/pressline/pkg/models"
)

func TestHTTPClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/content/generate", r.URL.Path)

		var params models.ContentParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "AI", params.Topic)

		_, _ = w.Write([]byte(`{
			"title": "AI in Plain Words",
			"introduction": "AI is eating the world.",
			"sections": [{"heading": "What changed", "content": "Models got bigger."}],
			"faq": [{"question": "Is it magic?", "answer": "No."}],
			"conclusion": "It is here to stay.",
			"word_count": 1500,
			"featured_image": {"url": "https://cdn.example.com/ai.png"},
			"metadata": {"slug": "ai-in-plain-words", "meta_description": "A primer."}
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client(), time.Minute, slog.Default())

	article, err := client.Generate(t.Context(), models.ContentParams{Topic: "AI"})
	require.NoError(t, err)

	assert.Equal(t, "AI in Plain Words", article.Title)
	assert.Equal(t, 1500, article.WordCount)
	assert.Equal(t, "ai-in-plain-words", article.Metadata.Slug)
	assert.Equal(t, []string{"https://cdn.example.com/ai.png"}, article.MediaRefs)

	assert.Contains(t, article.Body, "AI is eating the world.")
	assert.Contains(t, article.Body, "What changed")
	assert.Contains(t, article.Body, "Is it magic?")
	assert.Contains(t, article.Body, "It is here to stay.")
}

func TestHTTPClient_Generate_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream model unavailable"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client(), time.Minute, slog.Default())

	article, err := client.Generate(t.Context(), models.ContentParams{Topic: "AI"})
	assert.Nil(t, article)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Cause, "503")
	assert.Contains(t, genErr.Cause, "upstream model unavailable")
}

func TestHTTPClient_Generate_ErrorDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "prompt rejected"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client(), time.Minute, slog.Default())

	_, err := client.Generate(t.Context(), models.ContentParams{Topic: "AI"})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "prompt rejected", genErr.Cause)
}

func TestHTTPClient_Generate_Timeout(t *testing.T) {
	block := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewHTTPClient(server.URL, server.Client(), 50*time.Millisecond, slog.Default())

	_, err := client.Generate(t.Context(), models.ContentParams{Topic: "AI"})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "content service unreachable", genErr.Cause)
	assert.Error(t, genErr.Unwrap())
}
