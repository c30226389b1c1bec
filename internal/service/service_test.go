package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/ai"
	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/id"
	"github.com/heysmata/strava-for-books/internal/speech"
	"github.com/heysmata/strava-for-books/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), testLogger(), store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedBook(t *testing.T, st *store.Store, mutate func(*domain.Book)) *domain.Book {
	t.Helper()
	now := time.Now().UTC()
	book := &domain.Book{
		ID:         id.MustGenerate(id.PrefixBook),
		Title:      "The Test Pattern",
		Author:     "A. Writer",
		TotalPages: 100,
		Status:     domain.StatusToRead,
		Quotes:     []string{},
		AddedAt:    now,
		UpdatedAt:  now,
	}
	if mutate != nil {
		mutate(book)
	}
	require.NoError(t, st.CreateBook(t.Context(), book))
	return book
}

// fakeMetadata is a canned MetadataProvider.
type fakeMetadata struct {
	enabled bool
	meta    *ai.BookMetadata
	err     error
}

func (f *fakeMetadata) Enabled() bool { return f.enabled }

func (f *fakeMetadata) MetadataFromTitle(_ context.Context, _ string) (*ai.BookMetadata, error) {
	return f.meta, f.err
}

func (f *fakeMetadata) MetadataFromCover(_ context.Context, _ []byte, _ string) (*ai.BookMetadata, error) {
	return f.meta, f.err
}

// recordingEmitter captures broadcast events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

// fakeSpeechEngine records utterances and lets tests feed events back.
type fakeSpeechEngine struct {
	mu     sync.Mutex
	spoken []speech.Utterance
	events chan speech.Event
}

func newFakeSpeechEngine() *fakeSpeechEngine {
	return &fakeSpeechEngine{events: make(chan speech.Event, 16)}
}

func (f *fakeSpeechEngine) Voices() []speech.Voice {
	return []speech.Voice{{ID: "narrator", Name: "Narrator", Language: "en-US", Default: true}}
}

func (f *fakeSpeechEngine) Speak(u speech.Utterance) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.mu.Unlock()
	f.events <- speech.Event{Type: speech.EventStarted, Utterance: u.ID}
	return nil
}

func (f *fakeSpeechEngine) Pause() error  { return nil }
func (f *fakeSpeechEngine) Resume() error { return nil }
func (f *fakeSpeechEngine) Cancel()       {}

func (f *fakeSpeechEngine) Events() <-chan speech.Event { return f.events }
func (f *fakeSpeechEngine) Close() error {
	close(f.events)
	return nil
}

func (f *fakeSpeechEngine) spokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

func (f *fakeSpeechEngine) lastUtterance() speech.Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spoken[len(f.spoken)-1]
}
