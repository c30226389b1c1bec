// Package illustration generates and caches AI page illustrations for the
// immersive reader. Illustrations are session-scoped: each open book gets a
// cache keyed by reader page index, discarded when the book is closed so a
// content change can never serve stale art.
package illustration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/heysmata/strava-for-books/internal/media/images"
	"github.com/heysmata/strava-for-books/internal/sse"
)

// ImageClient generates illustration prompts and images.
type ImageClient interface {
	ImagePrompt(ctx context.Context, pageText string) (string, error)
	GenerateImage(ctx context.Context, scenePrompt string) ([]byte, error)
}

// Emitter broadcasts illustration lifecycle events.
type Emitter interface {
	Emit(event any)
}

// Illustration is one finished page illustration.
type Illustration struct {
	URL      string `json:"url"`
	Blurhash string `json:"blurhash,omitempty"`
}

// Generator owns the shared dependencies for illustration sessions.
type Generator struct {
	client  ImageClient
	storage *images.Storage
	emitter Emitter
	logger  *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(client ImageClient, storage *images.Storage, emitter Emitter, logger *slog.Logger) *Generator {
	return &Generator{
		client:  client,
		storage: storage,
		emitter: emitter,
		logger:  logger,
	}
}

// Session is one open book's illustration cache. Safe for concurrent use.
type Session struct {
	g      *Generator
	bookID string

	mu         sync.Mutex
	enabled    bool
	generating bool
	cache      map[int]Illustration
}

// NewSession creates an illustration session for an open book.
func (g *Generator) NewSession(bookID string, enabled bool) *Session {
	return &Session{
		g:       g,
		bookID:  bookID,
		enabled: enabled,
		cache:   make(map[int]Illustration),
	}
}

// Enabled reports whether generation is switched on for this session.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled toggles generation. Disabling keeps the cache; pages already
// illustrated stay available, new pages just stop being generated.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Generating reports whether a generation is in flight.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// Get returns the cached illustration for a page, if any.
func (s *Session) Get(pageIndex int) (Illustration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ill, ok := s.cache[pageIndex]
	return ill, ok
}

// Snapshot returns a copy of the cache for the session view.
func (s *Session) Snapshot() map[int]Illustration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]Illustration, len(s.cache))
	for k, v := range s.cache {
		out[k] = v
	}
	return out
}

// RequestPage kicks off illustration generation for a page. It returns
// immediately: a cache hit needs no work, a generation already in flight
// acts as a gate against parallel image calls, and otherwise the work runs
// on its own goroutine with results announced over SSE. Returns the cached
// illustration when one exists.
func (s *Session) RequestPage(ctx context.Context, pageIndex int, pageText string) (Illustration, bool) {
	s.mu.Lock()
	if ill, ok := s.cache[pageIndex]; ok {
		s.mu.Unlock()
		return ill, true
	}
	if !s.enabled || s.generating || pageText == "" {
		s.mu.Unlock()
		return Illustration{}, false
	}
	s.generating = true
	s.mu.Unlock()

	s.g.emitter.Emit(sse.NewIllustrationPendingEvent(s.bookID, pageIndex))

	go s.generate(pageIndex, pageText)
	return Illustration{}, false
}

// generate runs one illustration pipeline: prompt distillation, image
// generation, storage, blurhash. A failed page stays absent from the cache
// so a later visit can retry.
func (s *Session) generate(pageIndex int, pageText string) {
	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	ctx := context.Background()

	prompt, err := s.g.client.ImagePrompt(ctx, pageText)
	if err != nil && prompt == "" {
		s.fail(pageIndex, err)
		return
	}
	// A prompt error with a fallback prompt still proceeds; the neutral
	// scene beats no illustration.

	data, err := s.g.client.GenerateImage(ctx, prompt)
	if err != nil {
		s.fail(pageIndex, err)
		return
	}

	storageID := s.storageID(pageIndex)
	if err := s.g.storage.Save(storageID, data); err != nil {
		s.fail(pageIndex, err)
		return
	}

	hash, err := images.ComputeBlurHashBytes(data)
	if err != nil {
		if s.g.logger != nil {
			s.g.logger.Warn("blurhash computation failed",
				"book_id", s.bookID, "page", pageIndex, "error", err)
		}
		hash = ""
	}

	ill := Illustration{
		URL:      fmt.Sprintf("/api/v1/books/%s/illustrations/%d", s.bookID, pageIndex),
		Blurhash: hash,
	}

	s.mu.Lock()
	s.cache[pageIndex] = ill
	s.mu.Unlock()

	if s.g.logger != nil {
		s.g.logger.Info("page illustration ready",
			"book_id", s.bookID, "page", pageIndex, "bytes", len(data))
	}
	s.g.emitter.Emit(sse.NewIllustrationReadyEvent(s.bookID, pageIndex, ill.URL, ill.Blurhash))
}

func (s *Session) fail(pageIndex int, err error) {
	if s.g.logger != nil {
		s.g.logger.Warn("page illustration failed",
			"book_id", s.bookID, "page", pageIndex, "error", err)
	}
	s.g.emitter.Emit(sse.NewIllustrationFailedEvent(s.bookID, pageIndex, err))
}

// ImageData reads the stored image bytes for a page.
func (s *Session) ImageData(pageIndex int) ([]byte, error) {
	return s.g.storage.Get(s.storageID(pageIndex))
}

// Close discards the session's stored illustrations. Page art is tied to
// one pagination of one content blob; nothing here is worth keeping.
func (s *Session) Close() {
	s.mu.Lock()
	pages := make([]int, 0, len(s.cache))
	for idx := range s.cache {
		pages = append(pages, idx)
	}
	s.cache = make(map[int]Illustration)
	s.mu.Unlock()

	for _, idx := range pages {
		if err := s.g.storage.Delete(s.storageID(idx)); err != nil && s.g.logger != nil {
			s.g.logger.Warn("failed to delete stored illustration",
				"book_id", s.bookID, "page", idx, "error", err)
		}
	}
}

func (s *Session) storageID(pageIndex int) string {
	return fmt.Sprintf("%s-page-%d", s.bookID, pageIndex)
}
