package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/domain"
	apperrors "github.com/heysmata/strava-for-books/internal/errors"
	"github.com/heysmata/strava-for-books/internal/illustration"
	"github.com/heysmata/strava-for-books/internal/media/images"
	"github.com/heysmata/strava-for-books/internal/speech"
	"github.com/heysmata/strava-for-books/internal/sse"
	"github.com/heysmata/strava-for-books/internal/store"
)

// pageSize small enough that the fixture content spans several pages.
const testPageSize = 80

// testContent paginates to 4+ pages at testPageSize.
func testContent() string {
	var b strings.Builder
	for i := range 60 {
		if i > 0 && i%10 == 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("lorem ")
	}
	return b.String()
}

type readerFixture struct {
	svc    *ReaderService
	store  *store.Store
	engine *fakeSpeechEngine
	events *recordingEmitter
	book   *domain.Book
}

func setupReader(t *testing.T, illustrationsEnabled bool) *readerFixture {
	t.Helper()

	st := setupStore(t)
	engine := newFakeSpeechEngine()
	events := &recordingEmitter{}

	storage, err := images.NewIllustrationStorage(t.TempDir())
	require.NoError(t, err)
	generator := illustration.NewGenerator(nil, storage, events, testLogger())

	svc := NewReaderService(st, generator, engine, events, testPageSize, illustrationsEnabled, testLogger())
	t.Cleanup(svc.Close)

	book := seedBook(t, st, func(b *domain.Book) {
		b.Content = testContent()
	})

	return &readerFixture{svc: svc, store: st, engine: engine, events: events, book: book}
}

func TestReaderService_OpenBook(t *testing.T) {
	f := setupReader(t, false)

	view, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	assert.Equal(t, f.book.ID, view.BookID)
	assert.Equal(t, 0, view.PageIndex)
	assert.Greater(t, view.PageCount, 2)
	assert.NotEmpty(t, view.Page)
	assert.NotEmpty(t, view.Paragraphs)
	assert.LessOrEqual(t, len(view.Page), testPageSize)

	bookID, open := f.svc.OpenBookID()
	assert.True(t, open)
	assert.Equal(t, f.book.ID, bookID)
}

func TestReaderService_OpenBook_NoContent(t *testing.T) {
	f := setupReader(t, false)
	empty := seedBook(t, f.store, func(b *domain.Book) {
		b.Content = ""
	})

	_, err := f.svc.OpenBook(t.Context(), empty.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReaderService_OpenBook_RestoresPosition(t *testing.T) {
	f := setupReader(t, false)

	view, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	_, err = f.svc.GoToPage(t.Context(), view.PageCount-1)
	require.NoError(t, err)
	f.svc.CloseBook(t.Context())

	reopened, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, view.PageCount-1, reopened.PageIndex)
}

func TestReaderService_GoToPage_PersistsAndCommitsProgress(t *testing.T) {
	f := setupReader(t, false)

	view, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	last := view.PageCount - 1
	_, err = f.svc.GoToPage(t.Context(), last)
	require.NoError(t, err)

	pos, err := f.store.GetReaderPosition(t.Context(), f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, last, pos.PageIndex)

	book, err := f.store.GetBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.TotalPages, book.CurrentPage)
	assert.Equal(t, domain.StatusFinished, book.Status)
}

func TestReaderService_GoToPage_OutOfRange(t *testing.T) {
	f := setupReader(t, false)

	view, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	_, err = f.svc.GoToPage(t.Context(), view.PageCount)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.GoToPage(t.Context(), -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReaderService_NextPrevPage(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	next, err := f.svc.NextPage(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, next.PageIndex)

	prev, err := f.svc.PrevPage(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, prev.PageIndex)

	_, err = f.svc.PrevPage(t.Context())
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReaderService_RequiresOpenSession(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.GoToPage(t.Context(), 0)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = f.svc.CurrentView(t.Context())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.ErrorIs(t, f.svc.Play(t.Context()), apperrors.ErrConflict)
	assert.ErrorIs(t, f.svc.Pause(t.Context()), apperrors.ErrConflict)
	assert.ErrorIs(t, f.svc.StopPlayback(t.Context()), apperrors.ErrConflict)
	assert.ErrorIs(t, f.svc.SelectParagraph(t.Context(), 0), apperrors.ErrConflict)
	_, err = f.svc.Illustrations(t.Context())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestReaderService_PlayNarratesCurrentPage(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Play(t.Context()))

	require.Eventually(t, func() bool {
		return f.engine.spokenCount() == 1
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return f.svc.PlaybackState(t.Context()).State == speech.StatePlaying
	}, time.Second, time.Millisecond)
}

func TestReaderService_NavigationStopsNarration(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Play(t.Context()))
	require.Eventually(t, func() bool {
		return f.svc.PlaybackState(t.Context()).State == speech.StatePlaying
	}, time.Second, time.Millisecond)

	_, err = f.svc.NextPage(t.Context())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.svc.PlaybackState(t.Context()).State == speech.StateStopped
	}, time.Second, time.Millisecond)
}

func TestReaderService_PlaybackEventsCarryBookID(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Play(t.Context()))

	require.Eventually(t, func() bool {
		for _, raw := range f.events.all() {
			event, ok := raw.(sse.Event)
			if !ok || event.Type != sse.EventPlaybackState {
				continue
			}
			data := event.Data.(sse.PlaybackStateEventData)
			if data.BookID == f.book.ID && data.State == string(speech.StatePlaying) {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestReaderService_Voices(t *testing.T) {
	f := setupReader(t, false)
	voices := f.svc.Voices(t.Context())
	require.Len(t, voices, 1)
	assert.Equal(t, "narrator", voices[0].ID)
}

func TestReaderService_SetRate_Validation(t *testing.T) {
	f := setupReader(t, false)
	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetRate(t.Context(), 0), apperrors.ErrValidation)
	assert.NoError(t, f.svc.SetRate(t.Context(), 1.5))
}

func TestReaderService_CloseBookDuringNarration(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Play(t.Context()))
	require.Eventually(t, func() bool {
		return f.engine.spokenCount() == 1
	}, time.Second, time.Millisecond)

	// Flood the controller with word boundaries so it is publishing
	// snapshots while the book is being closed.
	utterance := f.engine.lastUtterance().ID
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case f.engine.events <- speech.Event{
				Type:      speech.EventBoundary,
				Utterance: utterance,
				WordStart: i,
				WordEnd:   i + 1,
			}:
			}
		}
	}()

	closed := make(chan struct{})
	go func() {
		f.svc.CloseBook(t.Context())
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("CloseBook blocked while narration was publishing snapshots")
	}
	close(stop)
	wg.Wait()

	_, open := f.svc.OpenBookID()
	assert.False(t, open)
}

func TestReaderService_CloseBook(t *testing.T) {
	f := setupReader(t, false)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	f.svc.CloseBook(t.Context())

	_, open := f.svc.OpenBookID()
	assert.False(t, open)
	_, err = f.svc.CurrentView(t.Context())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestReaderService_ContentUpdateInvalidatesSession(t *testing.T) {
	f := setupReader(t, false)
	library := NewLibraryService(f.store, nil, nil, testLogger())
	library.SetSessionInvalidator(f.svc)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	// Catalog-only edits leave the session alone.
	newTitle := "Renamed While Reading"
	_, err = library.UpdateBook(t.Context(), f.book.ID, UpdateBookParams{Title: &newTitle})
	require.NoError(t, err)
	_, open := f.svc.OpenBookID()
	assert.True(t, open)

	// Replacing the text repaginates everything; the session must go.
	newContent := "Entirely new text.\n\nWith different pagination."
	_, err = library.UpdateBook(t.Context(), f.book.ID, UpdateBookParams{Content: &newContent})
	require.NoError(t, err)

	_, open = f.svc.OpenBookID()
	assert.False(t, open)

	view, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.PageCount)
	assert.Equal(t, 0, view.PageIndex)
}

func TestReaderService_DeleteBookInvalidatesSession(t *testing.T) {
	f := setupReader(t, false)
	library := NewLibraryService(f.store, nil, nil, testLogger())
	library.SetSessionInvalidator(f.svc)

	_, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)

	require.NoError(t, library.DeleteBook(t.Context(), f.book.ID))

	_, open := f.svc.OpenBookID()
	assert.False(t, open)
	_, err = f.svc.CurrentView(t.Context())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestReaderService_IllustrationsDisabledByDefault(t *testing.T) {
	f := setupReader(t, false)

	view, err := f.svc.OpenBook(t.Context(), f.book.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Illustration)

	cache, err := f.svc.Illustrations(t.Context())
	require.NoError(t, err)
	assert.Empty(t, cache)
}

// stubImageClient satisfies illustration.ImageClient for toggle tests.
type stubImageClient struct{}

func (stubImageClient) ImagePrompt(_ context.Context, _ string) (string, error) {
	return "a quiet scene", nil
}

func (stubImageClient) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func TestReaderService_IllustrationToggle(t *testing.T) {
	st := setupStore(t)
	engine := newFakeSpeechEngine()
	events := &recordingEmitter{}
	storage, err := images.NewIllustrationStorage(t.TempDir())
	require.NoError(t, err)
	generator := illustration.NewGenerator(stubImageClient{}, storage, events, testLogger())
	svc := NewReaderService(st, generator, engine, events, testPageSize, false, testLogger())
	t.Cleanup(svc.Close)

	book := seedBook(t, st, func(b *domain.Book) { b.Content = testContent() })
	_, err = svc.OpenBook(t.Context(), book.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SetIllustrationsEnabled(t.Context(), true))

	require.Eventually(t, func() bool {
		cache, err := svc.Illustrations(t.Context())
		return err == nil && len(cache) == 1
	}, time.Second, time.Millisecond*5)

	data, err := svc.IllustrationData(t.Context(), book.ID, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
