package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/heysmata/strava-for-books/internal/chat"
	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/errors"
	"github.com/heysmata/strava-for-books/internal/sse"
	"github.com/heysmata/strava-for-books/internal/store"
)

// ChatService runs the book companion. Conversations are per book and
// start fresh whenever the discussed book changes; the companion only ever
// sees up to the reader's current page, so it cannot spoil what's ahead.
type ChatService struct {
	store   *store.Store
	replier chat.Replier
	emitter store.EventEmitter
	logger  *slog.Logger

	mu      sync.Mutex
	session *chat.Session
}

// NewChatService creates the chat service. replier may be nil when no AI
// backend is configured.
func NewChatService(st *store.Store, replier chat.Replier, emitter store.EventEmitter, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:   st,
		replier: replier,
		emitter: emitter,
		logger:  logger,
	}
}

// Send delivers a user message about a book and returns the companion's
// reply. Switching books discards the previous conversation.
func (s *ChatService) Send(ctx context.Context, bookID, text string) ([]domain.ChatMessage, error) {
	if s.replier == nil {
		return nil, errors.Unavailable("chat requires an AI backend")
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	session := s.sessionFor(bookID)

	userMsg, reply, err := session.Send(ctx, book, text)
	if err != nil {
		switch err {
		case chat.ErrEmptyMessage:
			return nil, errors.Validation("message cannot be empty")
		case chat.ErrBusy:
			return nil, errors.Conflict("a reply is already in flight")
		default:
			return nil, err
		}
	}

	s.emitter.Emit(sse.NewChatMessageEvent(bookID, userMsg))
	s.emitter.Emit(sse.NewChatMessageEvent(bookID, reply))

	return []domain.ChatMessage{userMsg, reply}, nil
}

// History returns the conversation for a book. A book without an active
// conversation has an empty history.
func (s *ChatService) History(_ context.Context, bookID string) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.BookID() != bookID {
		return []domain.ChatMessage{}
	}
	return s.session.History()
}

// Reset drops the active conversation, if any.
func (s *ChatService) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.logger.Debug("chat conversation reset", "book_id", s.session.BookID())
	}
	s.session = nil
}

// sessionFor returns the conversation for the book, starting a fresh one
// when the book changed.
func (s *ChatService) sessionFor(bookID string) *chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.BookID() != bookID {
		s.session = chat.NewSession(bookID, s.replier, s.logger)
	}
	return s.session
}
