package ai

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/domain"
)

// newTestClient points a client at a local fake backend.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.AIConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		TextModel:         "gemini-2.5-flash",
		ImageModel:        "imagen-4.0-generate-001",
		RequestsPerMinute: 6000,
	}, nil)
}

// textResponse builds a generateContent response carrying the given text.
func textResponse(t *testing.T, text string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	require.NoError(t, err)
	return data
}

func TestSanitizeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeJSON(tt.in))
		})
	}
}

func TestMetadataFromTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")

		w.Write(textResponse(t, `{"author":"Frank Herbert","summary":"Desert politics.","coverImage":"https://covers.example.com/dune.jpg","totalPages":412}`))
	})

	meta, err := client.MetadataFromTitle(context.Background(), "Dune")
	require.NoError(t, err)
	assert.Equal(t, "Dune", meta.Title)
	assert.Equal(t, "Frank Herbert", meta.Author)
	assert.Equal(t, 412, meta.TotalPages)
}

func TestMetadataFromTitle_FencedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(textResponse(t, "```json\n{\"author\":\"Jane Austen\",\"totalPages\":99}\n```"))
	})

	meta, err := client.MetadataFromTitle(context.Background(), "Emma")
	require.NoError(t, err)
	assert.Equal(t, "Jane Austen", meta.Author)
	// Missing fields fall back per field.
	assert.Equal(t, FallbackSummary, meta.Summary)
	assert.Equal(t, FallbackCoverURL, meta.CoverImage)
}

func TestMetadataFromTitle_BackendFailureReturnsFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	meta, err := client.MetadataFromTitle(context.Background(), "Dune")
	require.Error(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, FallbackAuthor, meta.Author)
	assert.Equal(t, FallbackTotalPages, meta.TotalPages)
	assert.Contains(t, meta.Summary, "Dune")
}

func TestMetadataFromCover(t *testing.T) {
	imageBytes := []byte{0xFF, 0xD8, 0xFF} // JPEG magic

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.UnmarshalRead(r.Body, &req))
		raw, err := json.Marshal(req)
		require.NoError(t, err)
		assert.Contains(t, string(raw), base64.StdEncoding.EncodeToString(imageBytes))

		w.Write(textResponse(t, `{"title":"The Hobbit","author":"J.R.R. Tolkien"}`))
	})

	meta, err := client.MetadataFromCover(context.Background(), imageBytes, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", meta.Title)
	assert.Equal(t, "J.R.R. Tolkien", meta.Author)
}

func TestChatReply_PromptPinsSpoilerCeiling(t *testing.T) {
	var prompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.UnmarshalRead(r.Body, &req))
		require.NotEmpty(t, req.Contents)
		prompt = req.Contents[0].Parts[0].Text

		w.Write(textResponse(t, "The sandworms are central to Arrakis."))
	})

	book := &domain.Book{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Summary:     "Desert politics.",
		TotalPages:  412,
		CurrentPage: 100,
	}

	reply, err := client.ChatReply(context.Background(), book, "What are the sandworms?")
	require.NoError(t, err)
	assert.Equal(t, "The sandworms are central to Arrakis.", reply)
	assert.Contains(t, prompt, "up to page 100 of 412")
	assert.Contains(t, prompt, "Do NOT reveal")
}

func TestChatReply_ErrorPropagates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ChatReply(context.Background(), &domain.Book{}, "hi")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestImagePrompt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(textResponse(t, `"A storm-lashed lighthouse on a rocky coast."`))
	})

	prompt, err := client.ImagePrompt(context.Background(), "The keeper climbed the stairs as waves hammered the rocks.")
	require.NoError(t, err)
	// Quotes are stripped from the model output.
	assert.Equal(t, "A storm-lashed lighthouse on a rocky coast.", prompt)
}

func TestImagePrompt_FallbackOnFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	prompt, err := client.ImagePrompt(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, FallbackImagePrompt, prompt)
}

func TestTruncateExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"multibyte cut backs up to rune start", "héllo", 2, "h"},
		{"cut lands on rune start", "héllo", 3, "hé"},
		{"emoji never split", "ab\U0001F4DA", 4, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateExcerpt(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestImagePrompt_MultibytePageText(t *testing.T) {
	var prompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.UnmarshalRead(r.Body, &req))
		prompt = req.Contents[0].Parts[0].Text

		w.Write(textResponse(t, "A quiet library."))
	})

	// Long enough to force truncation, with a multibyte rune straddling the cut.
	pageText := strings.Repeat("a", promptSourceLimit-1) + "é" + strings.Repeat("b", 50)

	_, err := client.ImagePrompt(context.Background(), pageText)
	require.NoError(t, err)
	// A mid-rune cut would leave a dangling byte that %q renders as \xc3.
	assert.NotContains(t, prompt, `\xc3`)
}

func TestGenerateImage(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "imagen-4.0-generate-001:predict")

		var req predictRequest
		require.NoError(t, json.UnmarshalRead(r.Body, &req))
		require.Len(t, req.Instances, 1)
		assert.True(t, strings.HasPrefix(req.Instances[0].Prompt, "An atmospheric, digital painting style illustration"))
		assert.Equal(t, "3:4", req.Parameters.AspectRatio)

		data, err := json.Marshal(map[string]any{
			"predictions": []map[string]any{
				{"bytesBase64Encoded": base64.StdEncoding.EncodeToString(jpeg), "mimeType": "image/jpeg"},
			},
		})
		require.NoError(t, err)
		w.Write(data)
	})

	got, err := client.GenerateImage(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, jpeg, got)
}

func TestGenerateImage_NoPredictions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predictions":[]}`))
	})

	_, err := client.GenerateImage(context.Background(), "a lighthouse")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClientDisabledWithoutKey(t *testing.T) {
	client := New(config.AIConfig{BaseURL: "http://localhost:1", TextModel: "m"}, nil)
	assert.False(t, client.Enabled())

	_, err := client.MetadataFromTitle(context.Background(), "Dune")
	assert.ErrorIs(t, err, ErrDisabled)
}
