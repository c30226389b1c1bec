package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/heysmata/strava-for-books/internal/errors"
	"github.com/heysmata/strava-for-books/internal/illustration"
	"github.com/heysmata/strava-for-books/internal/reader"
	"github.com/heysmata/strava-for-books/internal/speech"
	"github.com/heysmata/strava-for-books/internal/sse"
	"github.com/heysmata/strava-for-books/internal/store"
)

// ReaderService owns the single immersive reader session. Opening a book
// closes whatever was open before; narration, illustrations, and the saved
// position all follow the active session.
type ReaderService struct {
	store     *store.Store
	generator *illustration.Generator
	emitter   store.EventEmitter
	logger    *slog.Logger

	pageSize             int
	illustrationsDefault bool

	controller *speech.Controller

	mu      sync.Mutex
	session *readerSession
}

// readerSession is the state of one open book.
type readerSession struct {
	bookID        string
	pages         []string
	pageIndex     int
	illustrations *illustration.Session
}

// ReaderView is what the client renders for the current page.
type ReaderView struct {
	BookID       string                     `json:"book_id"`
	PageIndex    int                        `json:"page_index"`
	PageCount    int                        `json:"page_count"`
	Page         string                     `json:"page"`
	Paragraphs   []string                   `json:"paragraphs"`
	Illustration *illustration.Illustration `json:"illustration,omitempty"`
}

// NewReaderService creates the reader service and starts its narration
// controller. engine is the speech backend narration plays through.
func NewReaderService(
	st *store.Store,
	generator *illustration.Generator,
	engine speech.Engine,
	emitter store.EventEmitter,
	pageSize int,
	illustrationsDefault bool,
	logger *slog.Logger,
) *ReaderService {
	if pageSize <= 0 {
		pageSize = reader.DefaultPageSize
	}

	s := &ReaderService{
		store:                st,
		generator:            generator,
		emitter:              emitter,
		logger:               logger,
		pageSize:             pageSize,
		illustrationsDefault: illustrationsDefault,
	}
	s.controller = speech.NewController(engine, logger, s.notifyPlayback)
	return s
}

// notifyPlayback translates controller snapshots into broadcast events.
// Runs on the controller's goroutine; snapshots arrive in order.
func (s *ReaderService) notifyPlayback(snap speech.Snapshot) {
	s.mu.Lock()
	bookID := ""
	if s.session != nil {
		bookID = s.session.bookID
	}
	s.mu.Unlock()
	if bookID == "" {
		return
	}

	s.emitter.Emit(sse.NewPlaybackStateEvent(bookID, string(snap.State), snap.ActiveParagraph))
	s.emitter.Emit(sse.NewPlaybackHighlightEvent(bookID, snap.ActiveParagraph, snap.Highlight.Start, snap.Highlight.End))
}

// OpenBook starts a reader session for the book, restoring the last saved
// page. Any previously open session is closed first.
func (s *ReaderService) OpenBook(ctx context.Context, bookID string) (*ReaderView, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.HasContent() {
		return nil, errors.Validation("book has no text content to read")
	}

	pages := reader.Paginate(book.Content, s.pageSize)
	if len(pages) == 0 {
		return nil, errors.Validation("book content paginated to nothing")
	}

	pos, err := s.store.GetReaderPosition(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("restore reader position: %w", err)
	}
	pageIndex := pos.PageIndex
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageIndex >= len(pages) {
		pageIndex = len(pages) - 1
	}

	s.mu.Lock()
	old := s.detachSessionLocked()
	s.mu.Unlock()
	s.teardownSession(old)

	session := &readerSession{
		bookID:        bookID,
		pages:         pages,
		pageIndex:     pageIndex,
		illustrations: s.generator.NewSession(bookID, s.illustrationsDefault),
	}
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.logger.Info("reader session opened",
		"book_id", bookID, "pages", len(pages), "page_index", pageIndex)

	return s.presentPage(ctx, session)
}

// CloseBook ends the current session. Narration stops and the illustration
// cache is discarded; the reader position stays persisted.
func (s *ReaderService) CloseBook(_ context.Context) {
	s.mu.Lock()
	session := s.detachSessionLocked()
	s.mu.Unlock()
	s.teardownSession(session)
}

// detachSessionLocked removes the active session and returns it. Caller holds
// s.mu. Teardown must happen after the lock is released: the controller
// goroutine takes s.mu while publishing snapshots, so stopping it under the
// lock would deadlock against a narration in full swing.
func (s *ReaderService) detachSessionLocked() *readerSession {
	session := s.session
	s.session = nil
	return session
}

// teardownSession stops narration and discards the session's illustration
// cache. Must be called without s.mu held. nil is a no-op.
func (s *ReaderService) teardownSession(session *readerSession) {
	if session == nil {
		return
	}
	s.controller.Stop()
	s.controller.SetParagraphs(nil)
	session.illustrations.Close()
	s.logger.Info("reader session closed", "book_id", session.bookID)
}

// GoToPage turns to an absolute page in the open book. Narration stops,
// the position is persisted, and reading progress follows the new page.
func (s *ReaderService) GoToPage(ctx context.Context, pageIndex int) (*ReaderView, error) {
	s.mu.Lock()
	session := s.session
	if session == nil {
		s.mu.Unlock()
		return nil, errors.Conflict("no open reader session")
	}
	if pageIndex < 0 || pageIndex >= len(session.pages) {
		s.mu.Unlock()
		return nil, errors.Validationf("page index %d out of range [0,%d)", pageIndex, len(session.pages))
	}
	session.pageIndex = pageIndex
	s.mu.Unlock()

	if err := s.store.SetReaderPosition(ctx, session.bookID, store.ReaderPosition{PageIndex: pageIndex}); err != nil {
		return nil, fmt.Errorf("persist reader position: %w", err)
	}
	if err := s.commitProgress(ctx, session, pageIndex); err != nil {
		return nil, err
	}

	return s.presentPage(ctx, session)
}

// NextPage turns one page forward.
func (s *ReaderService) NextPage(ctx context.Context) (*ReaderView, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, errors.Conflict("no open reader session")
	}
	next := s.session.pageIndex + 1
	s.mu.Unlock()
	return s.GoToPage(ctx, next)
}

// PrevPage turns one page back.
func (s *ReaderService) PrevPage(ctx context.Context) (*ReaderView, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, errors.Conflict("no open reader session")
	}
	prev := s.session.pageIndex - 1
	s.mu.Unlock()
	return s.GoToPage(ctx, prev)
}

// CurrentView re-renders the open page without moving.
func (s *ReaderService) CurrentView(ctx context.Context) (*ReaderView, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, errors.Conflict("no open reader session")
	}
	return s.presentPage(ctx, session)
}

// commitProgress maps the in-reader position onto the book's published page
// scale and saves it, so the library card and goal tracking follow along.
func (s *ReaderService) commitProgress(ctx context.Context, session *readerSession, pageIndex int) error {
	book, err := s.store.GetBook(ctx, session.bookID)
	if err != nil {
		return err
	}

	pos := reader.MapPosition(pageIndex, len(session.pages), book.TotalPages)
	if book.CurrentPage == pos.WholeBookPage {
		return nil
	}
	if err := book.SetCurrentPage(pos.WholeBookPage); err != nil {
		return fmt.Errorf("map reader position: %w", err)
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return fmt.Errorf("commit reading progress: %w", err)
	}
	return nil
}

// presentPage loads paragraphs into the narration controller, kicks off the
// page illustration, and assembles the view.
func (s *ReaderService) presentPage(ctx context.Context, session *readerSession) (*ReaderView, error) {
	s.mu.Lock()
	pageIndex := session.pageIndex
	page := session.pages[pageIndex]
	pageCount := len(session.pages)
	s.mu.Unlock()

	paragraphs := reader.SegmentParagraphs(page)
	s.controller.SetParagraphs(paragraphs)

	view := &ReaderView{
		BookID:     session.bookID,
		PageIndex:  pageIndex,
		PageCount:  pageCount,
		Page:       page,
		Paragraphs: paragraphs,
	}

	if ill, ok := session.illustrations.RequestPage(ctx, pageIndex, page); ok {
		view.Illustration = &ill
	}
	return view, nil
}

// Play starts or resumes narration of the open page.
func (s *ReaderService) Play(_ context.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	s.controller.Play()
	return nil
}

// Pause freezes narration in place.
func (s *ReaderService) Pause(_ context.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	s.controller.Pause()
	return nil
}

// StopPlayback stops narration and clears the highlight.
func (s *ReaderService) StopPlayback(_ context.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	s.controller.Stop()
	return nil
}

// SelectParagraph starts narration from a specific paragraph of the page.
func (s *ReaderService) SelectParagraph(_ context.Context, index int) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	s.controller.SelectParagraph(index)
	return nil
}

// SetVoice picks the narration voice for subsequent utterances.
func (s *ReaderService) SetVoice(_ context.Context, voice string) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	s.controller.SetVoice(voice)
	return nil
}

// SetRate sets the narration speed multiplier for subsequent utterances.
func (s *ReaderService) SetRate(_ context.Context, rate float64) error {
	if rate <= 0 {
		return errors.Validation("rate must be positive")
	}
	if err := s.requireSession(); err != nil {
		return err
	}
	s.controller.SetRate(rate)
	return nil
}

// Voices lists the narration voices the engine offers.
func (s *ReaderService) Voices(_ context.Context) []speech.Voice {
	return s.controller.Voices()
}

// PlaybackState reports the live narration snapshot.
func (s *ReaderService) PlaybackState(_ context.Context) speech.Snapshot {
	return s.controller.Snapshot()
}

// Illustrations returns the cached illustrations for the open book, keyed
// by page index.
func (s *ReaderService) Illustrations(_ context.Context) (map[int]illustration.Illustration, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, errors.Conflict("no open reader session")
	}
	return session.illustrations.Snapshot(), nil
}

// SetIllustrationsEnabled toggles generation for the open session. Cached
// pages survive a disable/enable round trip.
func (s *ReaderService) SetIllustrationsEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return errors.Conflict("no open reader session")
	}
	session.illustrations.SetEnabled(enabled)

	// Re-enabling picks the current page back up.
	if enabled {
		s.mu.Lock()
		pageIndex := session.pageIndex
		page := session.pages[pageIndex]
		s.mu.Unlock()
		session.illustrations.RequestPage(ctx, pageIndex, page)
	}
	return nil
}

// IllustrationData reads a finished illustration's image bytes.
func (s *ReaderService) IllustrationData(_ context.Context, bookID string, pageIndex int) ([]byte, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil || session.bookID != bookID {
		return nil, errors.NotFound("no illustrations for this book")
	}
	return session.illustrations.ImageData(pageIndex)
}

// InvalidateBook closes the open session when it belongs to bookID. Pages
// and illustration cache keys derive from the book's text, so a content
// change or deletion makes the session's indices meaningless; the reader has
// to be reopened against the new content.
func (s *ReaderService) InvalidateBook(bookID string) {
	s.mu.Lock()
	if s.session == nil || s.session.bookID != bookID {
		s.mu.Unlock()
		return
	}
	session := s.detachSessionLocked()
	s.mu.Unlock()
	s.teardownSession(session)
	s.logger.Info("reader session invalidated", "book_id", bookID)
}

// OpenBookID reports which book the reader has open, if any.
func (s *ReaderService) OpenBookID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return "", false
	}
	return s.session.bookID, true
}

// Close shuts the reader down, stopping narration for good.
func (s *ReaderService) Close() {
	s.mu.Lock()
	session := s.detachSessionLocked()
	s.mu.Unlock()
	s.teardownSession(session)
	s.controller.Close()
}

func (s *ReaderService) requireSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return errors.Conflict("no open reader session")
	}
	return nil
}
