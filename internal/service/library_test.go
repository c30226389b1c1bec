package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/ai"
	"github.com/heysmata/strava-for-books/internal/domain"
	apperrors "github.com/heysmata/strava-for-books/internal/errors"
)

func newLibraryService(t *testing.T, metadata MetadataProvider) *LibraryService {
	t.Helper()
	return NewLibraryService(setupStore(t), nil, metadata, testLogger())
}

func TestLibraryService_CreateBook(t *testing.T) {
	svc := newLibraryService(t, nil)

	book, err := svc.CreateBook(t.Context(), CreateBookParams{
		Title:      "  Piranesi  ",
		Author:     "Susanna Clarke",
		TotalPages: 245,
	})
	require.NoError(t, err)

	assert.Equal(t, "Piranesi", book.Title)
	assert.Equal(t, domain.StatusToRead, book.Status)
	assert.Equal(t, 0, book.CurrentPage)
	assert.NotEmpty(t, book.ID)

	loaded, err := svc.GetBook(t.Context(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Susanna Clarke", loaded.Author)
}

func TestLibraryService_CreateBook_Validation(t *testing.T) {
	svc := newLibraryService(t, nil)

	_, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "   ", TotalPages: 10})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateBook(t.Context(), CreateBookParams{Title: "No Pages"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLibraryService_AssistedAddByTitle(t *testing.T) {
	metadata := &fakeMetadata{
		enabled: true,
		meta: &ai.BookMetadata{
			Title:      "Dune",
			Author:     "Frank Herbert",
			Summary:    "Desert planet, giant worms.",
			CoverImage: "https://covers.example/dune.jpg",
			TotalPages: 412,
		},
	}
	svc := newLibraryService(t, metadata)

	book, err := svc.AssistedAddByTitle(t.Context(), "dune")
	require.NoError(t, err)

	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	assert.Equal(t, 412, book.TotalPages)
	assert.Equal(t, "https://covers.example/dune.jpg", book.CoverImage)
}

func TestLibraryService_AssistedAdd_RequiresBackend(t *testing.T) {
	svc := newLibraryService(t, &fakeMetadata{enabled: false})

	_, err := svc.AssistedAddByTitle(t.Context(), "Dune")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	_, err = svc.AssistedAddByCover(t.Context(), []byte{1, 2, 3}, "image/jpeg")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestLibraryService_AssistedAdd_BackendError(t *testing.T) {
	svc := newLibraryService(t, &fakeMetadata{enabled: true, err: errors.New("quota exceeded")})

	_, err := svc.AssistedAddByTitle(t.Context(), "Dune")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestLibraryService_UpdateBook_Partial(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Draft", Author: "Anon", TotalPages: 300})
	require.NoError(t, err)

	newTitle := "Final Title"
	updated, err := svc.UpdateBook(t.Context(), book.ID, UpdateBookParams{Title: &newTitle})
	require.NoError(t, err)

	assert.Equal(t, "Final Title", updated.Title)
	assert.Equal(t, "Anon", updated.Author)
	assert.Equal(t, 300, updated.TotalPages)
}

func TestLibraryService_UpdateBook_ShrinkingPagesClampsProgress(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Long Book", TotalPages: 500})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(t.Context(), book.ID, 400)
	require.NoError(t, err)

	shorter := 350
	updated, err := svc.UpdateBook(t.Context(), book.ID, UpdateBookParams{TotalPages: &shorter})
	require.NoError(t, err)

	assert.Equal(t, 350, updated.TotalPages)
	assert.Equal(t, 350, updated.CurrentPage)
}

func TestLibraryService_UpdateProgress_StatusFollowsPage(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Progress", TotalPages: 100})
	require.NoError(t, err)

	mid, err := svc.UpdateProgress(t.Context(), book.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, mid.Status)

	done, err := svc.UpdateProgress(t.Context(), book.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, done.Status)

	back, err := svc.UpdateProgress(t.Context(), book.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusToRead, back.Status)
}

func TestLibraryService_UpdateProgress_OutOfRange(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Short", TotalPages: 10})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(t.Context(), book.ID, 11)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpdateProgress(t.Context(), book.ID, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLibraryService_MarkFinished(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Almost Done", TotalPages: 321})
	require.NoError(t, err)

	finished, err := svc.MarkFinished(t.Context(), book.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinished, finished.Status)
	assert.Equal(t, 321, finished.CurrentPage)
}

func TestLibraryService_Quotes(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Quotable", TotalPages: 50})
	require.NoError(t, err)

	withQuote, err := svc.AddQuote(t.Context(), book.ID, "The beginning is the end.")
	require.NoError(t, err)
	require.Len(t, withQuote.Quotes, 1)

	_, err = svc.AddQuote(t.Context(), book.ID, "  ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	withTwo, err := svc.AddQuote(t.Context(), book.ID, "So it goes.")
	require.NoError(t, err)
	require.Len(t, withTwo.Quotes, 2)

	afterRemove, err := svc.RemoveQuote(t.Context(), book.ID, 0)
	require.NoError(t, err)
	require.Len(t, afterRemove.Quotes, 1)
	assert.Equal(t, "So it goes.", afterRemove.Quotes[0])

	_, err = svc.RemoveQuote(t.Context(), book.ID, 5)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLibraryService_DeleteBook(t *testing.T) {
	svc := newLibraryService(t, nil)
	book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Ephemeral", TotalPages: 5})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(t.Context(), book.ID))

	_, err = svc.GetBook(t.Context(), book.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLibraryService_ListBooks_NewestFirst(t *testing.T) {
	svc := newLibraryService(t, nil)

	first, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "First", TotalPages: 10})
	require.NoError(t, err)
	second, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Second", TotalPages: 10})
	require.NoError(t, err)

	books, err := svc.ListBooks(t.Context())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, second.ID, books[0].ID)
	assert.Equal(t, first.ID, books[1].ID)
}

func TestLibraryService_Goal(t *testing.T) {
	svc := newLibraryService(t, nil)

	goal, err := svc.GetGoal(t.Context())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGoalTarget, goal.Target)

	updated, err := svc.SetGoal(t.Context(), 12)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.Target)

	_, err = svc.SetGoal(t.Context(), 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLibraryService_GoalProgress(t *testing.T) {
	svc := newLibraryService(t, nil)
	_, err := svc.SetGoal(t.Context(), 4)
	require.NoError(t, err)

	for range 2 {
		book, err := svc.CreateBook(t.Context(), CreateBookParams{Title: "Read Me", TotalPages: 10})
		require.NoError(t, err)
		_, err = svc.MarkFinished(t.Context(), book.ID)
		require.NoError(t, err)
	}

	progress, err := svc.GoalProgress(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Finished)
	assert.InDelta(t, 50.0, progress.Percent, 0.001)
}
