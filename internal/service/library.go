// Package service provides the business logic layer for the reading
// tracker: library management, the immersive reader session, chat, and
// document import.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heysmata/strava-for-books/internal/ai"
	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/errors"
	"github.com/heysmata/strava-for-books/internal/id"
	"github.com/heysmata/strava-for-books/internal/search"
	"github.com/heysmata/strava-for-books/internal/store"
	"github.com/heysmata/strava-for-books/internal/validation"
)

// MetadataProvider fills in book details the user didn't type themselves.
type MetadataProvider interface {
	Enabled() bool
	MetadataFromTitle(ctx context.Context, title string) (*ai.BookMetadata, error)
	MetadataFromCover(ctx context.Context, imageData []byte, mimeType string) (*ai.BookMetadata, error)
}

// SessionInvalidator is notified when a book's text is replaced or the book
// is removed, so any reader session derived from the old content can be torn
// down. The reader service implements it.
type SessionInvalidator interface {
	InvalidateBook(bookID string)
}

// LibraryService orchestrates catalog and goal operations.
type LibraryService struct {
	store    *store.Store
	index    *search.SearchIndex
	metadata MetadataProvider
	validate *validation.Validator
	sessions SessionInvalidator
	logger   *slog.Logger
}

// NewLibraryService creates a library service. metadata may be nil when no
// AI backend is configured.
func NewLibraryService(store *store.Store, index *search.SearchIndex, metadata MetadataProvider, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:    store,
		index:    index,
		metadata: metadata,
		validate: validation.New(),
		logger:   logger,
	}
}

// SetSessionInvalidator wires the reader service in after construction; the
// library and reader services reference each other, so one side is set late.
func (s *LibraryService) SetSessionInvalidator(inv SessionInvalidator) {
	s.sessions = inv
}

// CreateBookParams holds the fields for a manual catalog entry.
type CreateBookParams struct {
	Title      string `json:"title" validate:"required,min=1,max=500"`
	Author     string `json:"author" validate:"max=500"`
	Summary    string `json:"summary" validate:"max=5000"`
	CoverImage string `json:"cover_image"`
	TotalPages int    `json:"total_pages" validate:"min=1"`
	Content    string `json:"content"`
}

// CreateBook adds a manually entered book to the library.
func (s *LibraryService) CreateBook(ctx context.Context, params CreateBookParams) (*domain.Book, error) {
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errors.Validation("title is required")
	}

	now := time.Now().UTC()
	book := &domain.Book{
		ID:          id.MustGenerate(id.PrefixBook),
		Title:       title,
		Author:      strings.TrimSpace(params.Author),
		Summary:     params.Summary,
		CoverImage:  params.CoverImage,
		TotalPages:  params.TotalPages,
		CurrentPage: 0,
		Status:      domain.StatusToRead,
		Quotes:      []string{},
		Content:     params.Content,
		AddedAt:     now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book added to library", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// AssistedAddByTitle creates a book from just a title, letting the AI
// backend fill in author, summary, cover, and page count.
func (s *LibraryService) AssistedAddByTitle(ctx context.Context, title string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.Validation("title is required")
	}
	if s.metadata == nil || !s.metadata.Enabled() {
		return nil, errors.Unavailable("assisted add requires an AI backend")
	}

	meta, err := s.metadata.MetadataFromTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata for %q: %w", title, err)
	}

	return s.CreateBook(ctx, CreateBookParams{
		Title:      meta.Title,
		Author:     meta.Author,
		Summary:    meta.Summary,
		CoverImage: meta.CoverImage,
		TotalPages: meta.TotalPages,
	})
}

// AssistedAddByCover creates a book from a photographed cover.
func (s *LibraryService) AssistedAddByCover(ctx context.Context, imageData []byte, mimeType string) (*domain.Book, error) {
	if len(imageData) == 0 {
		return nil, errors.Validation("cover image is required")
	}
	if s.metadata == nil || !s.metadata.Enabled() {
		return nil, errors.Unavailable("assisted add requires an AI backend")
	}

	meta, err := s.metadata.MetadataFromCover(ctx, imageData, mimeType)
	if err != nil {
		return nil, fmt.Errorf("identify cover: %w", err)
	}

	return s.CreateBook(ctx, CreateBookParams{
		Title:      meta.Title,
		Author:     meta.Author,
		Summary:    meta.Summary,
		CoverImage: meta.CoverImage,
		TotalPages: meta.TotalPages,
	})
}

// GetBook retrieves a single book.
func (s *LibraryService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.store.GetBook(ctx, bookID)
}

// ListBooks returns the whole library, newest first.
func (s *LibraryService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.store.ListBooks(ctx)
}

// UpdateBookParams holds the mutable catalog fields. Nil pointers leave the
// field untouched.
type UpdateBookParams struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=500"`
	Author     *string `json:"author" validate:"omitempty,max=500"`
	Summary    *string `json:"summary" validate:"omitempty,max=5000"`
	CoverImage *string `json:"cover_image"`
	TotalPages *int    `json:"total_pages" validate:"omitempty,min=1"`
	Content    *string `json:"content"`
}

// UpdateBook applies a partial update to a book's catalog fields.
func (s *LibraryService) UpdateBook(ctx context.Context, bookID string, params UpdateBookParams) (*domain.Book, error) {
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, errors.Validation("title cannot be empty")
		}
		book.Title = title
	}
	if params.Author != nil {
		book.Author = strings.TrimSpace(*params.Author)
	}
	if params.Summary != nil {
		book.Summary = *params.Summary
	}
	if params.CoverImage != nil {
		book.CoverImage = *params.CoverImage
	}
	if params.TotalPages != nil {
		if *params.TotalPages < 1 {
			return nil, errors.Validation("total_pages must be at least 1")
		}
		book.TotalPages = *params.TotalPages
		if book.CurrentPage > book.TotalPages {
			book.CurrentPage = book.TotalPages
		}
	}
	contentChanged := false
	if params.Content != nil && book.Content != *params.Content {
		book.Content = *params.Content
		contentChanged = true
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	// New text invalidates any reader session paginated from the old text.
	if contentChanged && s.sessions != nil {
		s.sessions.InvalidateBook(book.ID)
	}
	return book, nil
}

// DeleteBook removes a book and its reader state.
func (s *LibraryService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}
	if s.sessions != nil {
		s.sessions.InvalidateBook(bookID)
	}
	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// UpdateProgress records that the reader is now on the given page. Status
// follows the page: page 0 is unread, the last page finishes the book.
func (s *LibraryService) UpdateProgress(ctx context.Context, bookID string, currentPage int) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := book.SetCurrentPage(currentPage); err != nil {
		return nil, errors.Validation(err.Error())
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return book, nil
}

// MarkFinished jumps a book straight to finished regardless of the current
// page.
func (s *LibraryService) MarkFinished(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.MarkFinished()

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("mark finished: %w", err)
	}

	s.logger.Info("book finished", "book_id", bookID, "title", book.Title)
	return book, nil
}

// AddQuote appends a saved quote to a book.
func (s *LibraryService) AddQuote(ctx context.Context, bookID, quote string) (*domain.Book, error) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return nil, errors.Validation("quote cannot be empty")
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	book.Quotes = append(book.Quotes, quote)

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("add quote: %w", err)
	}
	return book, nil
}

// RemoveQuote deletes the quote at the given index.
func (s *LibraryService) RemoveQuote(ctx context.Context, bookID string, index int) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(book.Quotes) {
		return nil, errors.Validationf("quote index %d out of range", index)
	}
	book.Quotes = append(book.Quotes[:index], book.Quotes[index+1:]...)

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("remove quote: %w", err)
	}
	return book, nil
}

// Search runs a full-text query over the library index.
func (s *LibraryService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.index == nil {
		return nil, errors.Unavailable("search index not available")
	}
	return s.index.Search(ctx, params)
}

// GetGoal returns the yearly reading goal.
func (s *LibraryService) GetGoal(ctx context.Context) (domain.ReadingGoal, error) {
	return s.store.GetGoal(ctx)
}

// SetGoal replaces the yearly reading goal target.
func (s *LibraryService) SetGoal(ctx context.Context, target int) (domain.ReadingGoal, error) {
	if target < 1 {
		return domain.ReadingGoal{}, errors.Validation("goal target must be at least 1")
	}

	goal, err := s.store.GetGoal(ctx)
	if err != nil {
		return domain.ReadingGoal{}, err
	}
	goal.Target = target

	if err := s.store.SetGoal(ctx, goal); err != nil {
		return domain.ReadingGoal{}, fmt.Errorf("set goal: %w", err)
	}
	return goal, nil
}

// GoalProgress reports the goal alongside the finished-book count.
func (s *LibraryService) GoalProgress(ctx context.Context) (domain.GoalProgress, error) {
	goal, err := s.store.GetGoal(ctx)
	if err != nil {
		return domain.GoalProgress{}, err
	}
	finished, err := s.store.CountFinishedBooks(ctx)
	if err != nil {
		return domain.GoalProgress{}, fmt.Errorf("count finished books: %w", err)
	}
	return domain.GoalProgress{
		Goal:     goal,
		Finished: finished,
		Percent:  goal.Progress(finished),
	}, nil
}
