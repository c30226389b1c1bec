package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/illustration"
	"github.com/heysmata/strava-for-books/internal/media/images"
	"github.com/heysmata/strava-for-books/internal/service"
	"github.com/heysmata/strava-for-books/internal/speech"
	"github.com/heysmata/strava-for-books/internal/sse"
	"github.com/heysmata/strava-for-books/internal/store"
)

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type nullEngine struct {
	events chan speech.Event
}

func newNullEngine() *nullEngine {
	return &nullEngine{events: make(chan speech.Event, 16)}
}

func (e *nullEngine) Voices() []speech.Voice {
	return []speech.Voice{{ID: "narrator", Name: "Narrator", Language: "en-US", Default: true}}
}

func (e *nullEngine) Speak(u speech.Utterance) error {
	e.events <- speech.Event{Type: speech.EventStarted, Utterance: u.ID}
	return nil
}

func (e *nullEngine) Pause() error                { return nil }
func (e *nullEngine) Resume() error               { return nil }
func (e *nullEngine) Cancel()                     {}
func (e *nullEngine) Events() <-chan speech.Event { return e.events }
func (e *nullEngine) Close() error                { close(e.events); return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	manager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = manager.Shutdown(context.Background())
	})

	st, err := store.New(t.TempDir(), logger, manager)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	storage, err := images.NewIllustrationStorage(t.TempDir())
	require.NoError(t, err)
	generator := illustration.NewGenerator(nil, storage, manager, logger)

	library := service.NewLibraryService(st, nil, nil, logger)
	reader := service.NewReaderService(st, generator, newNullEngine(), manager, 120, false, logger)
	t.Cleanup(reader.Close)
	chatSvc := service.NewChatService(st, nil, manager, logger)

	services := &Services{
		Library: library,
		Reader:  reader,
		Chat:    chatSvc,
	}

	return NewServer(st, services, sse.NewHandler(manager, logger), manager, logger)
}

// doJSON performs a request with an optional JSON body and decodes the
// envelope.
func doJSON(t *testing.T, server *Server, method, path string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env),
			"body: %s", rec.Body.String())
	}
	return rec.Code, env
}

func createBookViaAPI(t *testing.T, server *Server, title string, pages int) string {
	t.Helper()

	status, env := doJSON(t, server, http.MethodPost, "/api/v1/books", map[string]any{
		"title":       title,
		"author":      "Test Author",
		"total_pages": pages,
	})
	require.Equal(t, http.StatusCreated, status)

	var book struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &book))
	require.NotEmpty(t, book.ID)
	return book.ID
}

func TestServer_HealthCheck(t *testing.T) {
	server := newTestServer(t)

	status, env := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
}

func TestServer_BookCRUD(t *testing.T) {
	server := newTestServer(t)

	bookID := createBookViaAPI(t, server, "Piranesi", 245)

	status, env := doJSON(t, server, http.MethodGet, "/api/v1/books/"+bookID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), "Piranesi")

	status, env = doJSON(t, server, http.MethodPatch, "/api/v1/books/"+bookID, map[string]any{
		"author": "Susanna Clarke",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Susanna Clarke")

	status, _ = doJSON(t, server, http.MethodDelete, "/api/v1/books/"+bookID, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, env = doJSON(t, server, http.MethodGet, "/api/v1/books/"+bookID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestServer_ListBooks(t *testing.T) {
	server := newTestServer(t)

	createBookViaAPI(t, server, "First", 100)
	createBookViaAPI(t, server, "Second", 200)

	status, env := doJSON(t, server, http.MethodGet, "/api/v1/books", nil)
	require.Equal(t, http.StatusOK, status)

	var books []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &books))
	assert.Len(t, books, 2)
}

func TestServer_CreateBook_Validation(t *testing.T) {
	server := newTestServer(t)

	status, env := doJSON(t, server, http.MethodPost, "/api/v1/books", map[string]any{
		"title": "No Pages",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, env.Success)
}

func TestServer_AssistWithoutBackend(t *testing.T) {
	server := newTestServer(t)

	status, _ := doJSON(t, server, http.MethodPost, "/api/v1/books/assist", map[string]any{
		"title": "Dune",
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestServer_ProgressAndFinish(t *testing.T) {
	server := newTestServer(t)
	bookID := createBookViaAPI(t, server, "Progress Book", 100)

	status, env := doJSON(t, server, http.MethodPut,
		fmt.Sprintf("/api/v1/books/%s/progress", bookID), map[string]any{
			"current_page": 50,
		})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"reading"`)

	status, env = doJSON(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/books/%s/finish", bookID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"finished"`)
}

func TestServer_Quotes(t *testing.T) {
	server := newTestServer(t)
	bookID := createBookViaAPI(t, server, "Quotable", 50)

	status, env := doJSON(t, server, http.MethodPost,
		fmt.Sprintf("/api/v1/books/%s/quotes", bookID), map[string]any{
			"quote": "So it goes.",
		})
	require.Equal(t, http.StatusCreated, status)
	assert.Contains(t, string(env.Data), "So it goes.")

	status, env = doJSON(t, server, http.MethodDelete,
		fmt.Sprintf("/api/v1/books/%s/quotes/0", bookID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "So it goes.")
}

func TestServer_Goal(t *testing.T) {
	server := newTestServer(t)

	status, env := doJSON(t, server, http.MethodGet, "/api/v1/goal", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"target"`)

	status, env = doJSON(t, server, http.MethodPut, "/api/v1/goal", map[string]any{
		"target": 12,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"target":12`)

	status, env = doJSON(t, server, http.MethodGet, "/api/v1/goal/progress", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"finished"`)
}

func TestServer_ReaderFlow(t *testing.T) {
	server := newTestServer(t)

	content := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	status, env := doJSON(t, server, http.MethodPost, "/api/v1/books", map[string]any{
		"title":       "Readable",
		"total_pages": 100,
		"content":     content,
	})
	require.Equal(t, http.StatusCreated, status)
	var book struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &book))

	status, env = doJSON(t, server, http.MethodPost, "/api/v1/reader/open", map[string]any{
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, status, "body: %s", string(env.Data))

	var view service.ReaderView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 0, view.PageIndex)
	assert.Greater(t, view.PageCount, 1)

	status, env = doJSON(t, server, http.MethodPost, "/api/v1/reader/next", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 1, view.PageIndex)

	status, _ = doJSON(t, server, http.MethodGet, "/api/v1/reader", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, server, http.MethodPost, "/api/v1/reader/playback/play", nil)
	assert.Equal(t, http.StatusAccepted, status)

	status, env = doJSON(t, server, http.MethodGet, "/api/v1/reader/playback/voices", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "narrator")

	status, _ = doJSON(t, server, http.MethodPost, "/api/v1/reader/close", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestServer_ReaderWithoutSession(t *testing.T) {
	server := newTestServer(t)

	status, env := doJSON(t, server, http.MethodGet, "/api/v1/reader", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	status, _ = doJSON(t, server, http.MethodPost, "/api/v1/reader/playback/play", nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestServer_ImportUnavailable(t *testing.T) {
	server := newTestServer(t)

	status, _ := doJSON(t, server, http.MethodPost, "/api/v1/import", map[string]any{
		"path": "/inbox/book.pdf",
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestServer_IllustrationImageNotFound(t *testing.T) {
	server := newTestServer(t)
	bookID := createBookViaAPI(t, server, "No Pictures", 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+bookID+"/illustrations/0", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
