package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/heysmata/strava-for-books/internal/docimport"
	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/media/covers"
	"github.com/heysmata/strava-for-books/internal/media/images"
	"github.com/heysmata/strava-for-books/internal/sse"
	"github.com/heysmata/strava-for-books/internal/store"
)

// ImportService turns dropped document files into library entries with
// readable content.
type ImportService struct {
	library    *LibraryService
	importer   *docimport.Importer
	covers     *images.Storage
	downloader *covers.Downloader
	metadata   MetadataProvider
	emitter    store.EventEmitter
	logger     *slog.Logger
}

// NewImportService creates an import service. metadata may be nil; imports
// then keep the filename-derived title without enrichment.
func NewImportService(
	library *LibraryService,
	importer *docimport.Importer,
	covers *images.Storage,
	metadata MetadataProvider,
	emitter store.EventEmitter,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		library:  library,
		importer: importer,
		covers:   covers,
		metadata: metadata,
		emitter:  emitter,
		logger:   logger,
	}
}

// SetCoverDownloader enables localizing remote metadata cover URLs into
// cover storage. Without it, enriched books keep the remote URL.
func (s *ImportService) SetCoverDownloader(dl *covers.Downloader) {
	s.downloader = dl
}

// ImportFile extracts a document and adds it to the library. The extracted
// text becomes the book's readable content; the first page raster becomes
// its cover unless AI metadata supplies a better one.
func (s *ImportService) ImportFile(ctx context.Context, path string) (*domain.Book, error) {
	s.logger.Info("importing document", "file", filepath.Base(path))

	result, err := s.importer.Import(ctx, path)
	if err != nil {
		s.emitter.Emit(sse.NewImportFailedEvent(path, err))
		return nil, err
	}

	params := CreateBookParams{
		Title:      result.Title,
		TotalPages: result.TotalPages,
		Content:    result.Content,
	}

	// Enrichment is best effort. The extracted document always wins on
	// page count since it reflects the actual file.
	if s.metadata != nil && s.metadata.Enabled() {
		if meta, err := s.metadata.MetadataFromTitle(ctx, result.Title); err != nil {
			s.logger.Warn("metadata enrichment failed, importing as-is",
				"file", filepath.Base(path), "error", err)
		} else {
			params.Author = meta.Author
			params.Summary = meta.Summary
			params.CoverImage = meta.CoverImage
		}
	}

	book, err := s.library.CreateBook(ctx, params)
	if err != nil {
		s.emitter.Emit(sse.NewImportFailedEvent(path, err))
		return nil, fmt.Errorf("create imported book: %w", err)
	}

	if err := s.localizeCover(ctx, book, params.CoverImage, result.CoverImage); err != nil {
		s.logger.Warn("could not attach cover", "book_id", book.ID, "error", err)
	}

	s.emitter.Emit(sse.NewImportCompletedEvent(path, book.ID))
	s.logger.Info("document imported", "book_id", book.ID, "title", book.Title,
		"pages", book.TotalPages)
	return book, nil
}

// localizeCover makes the imported book's cover self-contained. A usable
// remote metadata cover is downloaded into storage; failing that, the
// extracted first-page raster serves when the book has no cover of its own.
func (s *ImportService) localizeCover(ctx context.Context, book *domain.Book, coverURL string, extracted []byte) error {
	source := covers.DetectSource(coverURL)
	if s.downloader != nil && strings.HasPrefix(coverURL, "http") && source != covers.SourcePlaceholder {
		result := s.downloader.Download(ctx, book.ID, coverURL, source)
		if result.Success {
			return s.pointAtStoredCover(ctx, book)
		}
		s.logger.Warn("cover download failed, falling back",
			"book_id", book.ID, "url", coverURL, "error", result.Error)
	}

	if len(extracted) > 0 && (coverURL == "" || source == covers.SourcePlaceholder) {
		return s.attachExtractedCover(ctx, book, extracted)
	}
	return nil
}

// attachExtractedCover stores the first-page raster and points the book's
// cover at the serving endpoint.
func (s *ImportService) attachExtractedCover(ctx context.Context, book *domain.Book, data []byte) error {
	if err := s.covers.Save(book.ID, data); err != nil {
		return fmt.Errorf("store cover: %w", err)
	}
	return s.pointAtStoredCover(ctx, book)
}

// pointAtStoredCover rewrites the book's cover URL to the serving endpoint
// for its stored image.
func (s *ImportService) pointAtStoredCover(ctx context.Context, book *domain.Book) error {
	url := fmt.Sprintf("/api/v1/books/%s/cover", book.ID)
	_, err := s.library.UpdateBook(ctx, book.ID, UpdateBookParams{CoverImage: &url})
	if err != nil {
		return fmt.Errorf("point book at stored cover: %w", err)
	}
	book.CoverImage = url
	return nil
}

// CoverData reads a stored cover image for serving.
func (s *ImportService) CoverData(_ context.Context, bookID string) ([]byte, error) {
	return s.covers.Get(bookID)
}
