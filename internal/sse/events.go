// Package sse implements Server-Sent Events for pushing library, playback,
// and illustration updates to the reading client.
package sse

import (
	"time"

	"github.com/heysmata/strava-for-books/internal/domain"
)

// Everything here is server-to-client. Client actions arrive over the
// regular request/response API; the stream only reflects state back.

// EventType represents the type of SSE event.
type EventType string

const (
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated represents a book update event.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = "book.deleted"

	// EventGoalUpdated represents a reading goal change.
	EventGoalUpdated EventType = "goal.updated"

	// EventPlaybackState represents a narration state transition.
	EventPlaybackState EventType = "playback.state"
	// EventPlaybackHighlight represents a word-boundary highlight update.
	EventPlaybackHighlight EventType = "playback.highlight"

	// EventIllustrationPending represents an illustration generation start.
	EventIllustrationPending EventType = "illustration.pending"
	// EventIllustrationReady represents a finished page illustration.
	EventIllustrationReady EventType = "illustration.ready"
	// EventIllustrationFailed represents a failed illustration attempt.
	EventIllustrationFailed EventType = "illustration.failed"

	// EventChatMessage represents a new message in a book's chat.
	EventChatMessage EventType = "chat.message"

	// EventImportCompleted represents a finished document import.
	EventImportCompleted EventType = "import.completed"
	// EventImportFailed represents a failed document import.
	EventImportFailed EventType = "import.failed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field carries the payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// BookEventData is the data payload for book create/update events. The full
// book record is included (minus content) so events are renderable without a
// follow-up fetch.
type BookEventData struct {
	Book *domain.Book `json:"book"`
}

// BookDeletedEventData is the data payload for book delete events.
type BookDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	BookID    string    `json:"book_id"`
}

// GoalEventData is the data payload for goal updates.
type GoalEventData struct {
	Goal domain.ReadingGoal `json:"goal"`
}

// PlaybackStateEventData is the data payload for narration state changes.
type PlaybackStateEventData struct {
	BookID          string `json:"book_id"`
	State           string `json:"state"`
	ActiveParagraph *int   `json:"active_paragraph"`
}

// PlaybackHighlightEventData is the data payload for word highlight sweeps.
type PlaybackHighlightEventData struct {
	BookID    string `json:"book_id"`
	Paragraph *int   `json:"paragraph"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// IllustrationEventData is the data payload for illustration lifecycle events.
type IllustrationEventData struct {
	BookID    string `json:"book_id"`
	PageIndex int    `json:"page_index"`
	// URL and Blurhash are set on illustration.ready only.
	URL      string `json:"url,omitempty"`
	Blurhash string `json:"blurhash,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatMessageEventData is the data payload for chat messages.
type ChatMessageEventData struct {
	BookID  string             `json:"book_id"`
	Message domain.ChatMessage `json:"message"`
}

// ImportEventData is the data payload for import lifecycle events.
type ImportEventData struct {
	Path   string `json:"path"`
	BookID string `json:"book_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookCreatedEvent creates a book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Timestamp: time.Now(),
		Data:      BookEventData{Book: book},
	}
}

// NewBookUpdatedEvent creates a book.updated event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Timestamp: time.Now(),
		Data:      BookEventData{Book: book},
	}
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(bookID string) Event {
	return Event{
		Type:      EventBookDeleted,
		Timestamp: time.Now(),
		Data:      BookDeletedEventData{BookID: bookID, DeletedAt: time.Now()},
	}
}

// NewGoalUpdatedEvent creates a goal.updated event.
func NewGoalUpdatedEvent(goal domain.ReadingGoal) Event {
	return Event{
		Type:      EventGoalUpdated,
		Timestamp: time.Now(),
		Data:      GoalEventData{Goal: goal},
	}
}

// NewPlaybackStateEvent creates a playback.state event.
func NewPlaybackStateEvent(bookID, state string, activeParagraph *int) Event {
	return Event{
		Type:      EventPlaybackState,
		Timestamp: time.Now(),
		Data: PlaybackStateEventData{
			BookID:          bookID,
			State:           state,
			ActiveParagraph: activeParagraph,
		},
	}
}

// NewPlaybackHighlightEvent creates a playback.highlight event.
func NewPlaybackHighlightEvent(bookID string, paragraph *int, start, end int) Event {
	return Event{
		Type:      EventPlaybackHighlight,
		Timestamp: time.Now(),
		Data: PlaybackHighlightEventData{
			BookID:    bookID,
			Paragraph: paragraph,
			Start:     start,
			End:       end,
		},
	}
}

// NewIllustrationPendingEvent creates an illustration.pending event.
func NewIllustrationPendingEvent(bookID string, pageIndex int) Event {
	return Event{
		Type:      EventIllustrationPending,
		Timestamp: time.Now(),
		Data:      IllustrationEventData{BookID: bookID, PageIndex: pageIndex},
	}
}

// NewIllustrationReadyEvent creates an illustration.ready event.
func NewIllustrationReadyEvent(bookID string, pageIndex int, url, blurhash string) Event {
	return Event{
		Type:      EventIllustrationReady,
		Timestamp: time.Now(),
		Data: IllustrationEventData{
			BookID:    bookID,
			PageIndex: pageIndex,
			URL:       url,
			Blurhash:  blurhash,
		},
	}
}

// NewIllustrationFailedEvent creates an illustration.failed event.
func NewIllustrationFailedEvent(bookID string, pageIndex int, cause error) Event {
	data := IllustrationEventData{BookID: bookID, PageIndex: pageIndex}
	if cause != nil {
		data.Error = cause.Error()
	}
	return Event{
		Type:      EventIllustrationFailed,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewChatMessageEvent creates a chat.message event.
func NewChatMessageEvent(bookID string, msg domain.ChatMessage) Event {
	return Event{
		Type:      EventChatMessage,
		Timestamp: time.Now(),
		Data:      ChatMessageEventData{BookID: bookID, Message: msg},
	}
}

// NewImportCompletedEvent creates an import.completed event.
func NewImportCompletedEvent(path, bookID string) Event {
	return Event{
		Type:      EventImportCompleted,
		Timestamp: time.Now(),
		Data:      ImportEventData{Path: path, BookID: bookID},
	}
}

// NewImportFailedEvent creates an import.failed event.
func NewImportFailedEvent(path string, cause error) Event {
	data := ImportEventData{Path: path}
	if cause != nil {
		data.Error = cause.Error()
	}
	return Event{
		Type:      EventImportFailed,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
