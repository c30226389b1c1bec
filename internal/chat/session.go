// Package chat holds the per-book conversation state for the reading
// companion. Each book gets its own session; switching books starts a fresh
// conversation so context from one book never leaks into another.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/id"
)

// FallbackReply is shown in place of a model reply when the backend call
// fails. The user message stays in the history so the exchange reads
// naturally.
const FallbackReply = "Sorry, I couldn't connect to my knowledge base. Please check your connection or API key and try again."

// ErrBusy means a reply is already being generated for this session.
var ErrBusy = errors.New("chat reply already in progress")

// ErrEmptyMessage means the user message had no content.
var ErrEmptyMessage = errors.New("chat message is empty")

// Replier produces a spoiler-safe reply for a book discussion.
type Replier interface {
	ChatReply(ctx context.Context, book *domain.Book, userQuery string) (string, error)
}

// Session is one book's conversation. Safe for concurrent use; only one
// reply is ever in flight at a time.
type Session struct {
	replier Replier
	logger  *slog.Logger
	bookID  string

	mu       sync.Mutex
	busy     bool
	messages []domain.ChatMessage
}

// NewSession creates a conversation session for a book.
func NewSession(bookID string, replier Replier, logger *slog.Logger) *Session {
	return &Session{
		replier: replier,
		logger:  logger,
		bookID:  bookID,
	}
}

// BookID returns the book this session discusses.
func (s *Session) BookID() string {
	return s.bookID
}

// History returns a copy of the conversation so far.
func (s *Session) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy reports whether a reply is being generated.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Send appends the user's message and produces the companion's reply. The
// book carries the current page, which pins the reply's spoiler ceiling.
// When the backend fails, the reply is FallbackReply rather than an error;
// the conversation keeps flowing.
func (s *Session) Send(ctx context.Context, book *domain.Book, text string) (userMsg, reply domain.ChatMessage, err error) {
	if text == "" {
		return domain.ChatMessage{}, domain.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.ChatMessage{}, domain.ChatMessage{}, ErrBusy
	}
	s.busy = true

	userMsg = domain.ChatMessage{
		ID:     id.MustGenerate(id.PrefixMessage),
		Sender: domain.SenderUser,
		Text:   text,
	}
	s.messages = append(s.messages, userMsg)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	replyText, replyErr := s.replier.ChatReply(ctx, book, text)
	if replyErr != nil {
		if s.logger != nil {
			s.logger.Warn("chat reply failed",
				"book_id", s.bookID, "error", replyErr)
		}
		replyText = FallbackReply
	}

	reply = domain.ChatMessage{
		ID:     id.MustGenerate(id.PrefixMessage),
		Sender: domain.SenderAI,
		Text:   replyText,
	}

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.mu.Unlock()

	return userMsg, reply, nil
}
