package api

import (
	"github.com/heysmata/strava-for-books/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Library *service.LibraryService
	Reader  *service.ReaderService
	Chat    *service.ChatService
	Import  *service.ImportService // nil when no document importer is available
}
