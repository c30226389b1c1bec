package api

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the whole library, newest first",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Add a book",
		Description:   "Adds a manually entered book to the library",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "assistBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/assist",
		Summary:       "Add a book with AI assistance",
		Description:   "Creates a book from a bare title or a photographed cover, filling in the rest with AI metadata",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAssistBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get a book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update a book",
		Description: "Applies a partial update; only fields present in the body change",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete a book",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/progress",
		Summary:     "Update reading progress",
		Description: "Moves the reader to a page; reading status follows the page",
		Tags:        []string{"Books"},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "markFinished",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/finish",
		Summary:     "Mark a book finished",
		Tags:        []string{"Books"},
	}, s.handleMarkFinished)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addQuote",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/quotes",
		Summary:       "Save a quote",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddQuote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeQuote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}/quotes/{index}",
		Summary:       "Remove a quote",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusOK,
	}, s.handleRemoveQuote)
}

// === DTOs ===

// BookListOutput wraps the library listing for Huma.
type BookListOutput struct {
	Body []*domain.Book
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// CreateBookInput is the request for adding a manual book.
type CreateBookInput struct {
	Body service.CreateBookParams
}

// AssistBookInput is the request for AI-assisted book creation. Exactly one
// of title or cover_image should be set.
type AssistBookInput struct {
	Body struct {
		Title      string `json:"title,omitempty" doc:"Book title to look up"`
		CoverImage string `json:"cover_image,omitempty" doc:"Base64-encoded cover photo"`
		MimeType   string `json:"mime_type,omitempty" doc:"Cover photo MIME type (default image/jpeg)"`
	}
}

// BookIDInput identifies a book by path parameter.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookInput is the request for a partial book update.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body service.UpdateBookParams
}

// UpdateProgressInput is the request for moving the reading position.
type UpdateProgressInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		CurrentPage int `json:"current_page" minimum:"0" doc:"Page the reader is on"`
	}
}

// AddQuoteInput is the request for saving a quote.
type AddQuoteInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Quote string `json:"quote" minLength:"1" doc:"Quote text"`
	}
}

// RemoveQuoteInput identifies a quote by its position.
type RemoveQuoteInput struct {
	ID    string `path:"id" doc:"Book ID"`
	Index int    `path:"index" doc:"Zero-based quote index"`
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*BookListOutput, error) {
	books, err := s.services.Library.ListBooks(ctx)
	if err != nil {
		s.logger.Error("Failed to list books", "error", err)
		return nil, huma.Error500InternalServerError("Failed to retrieve books", err)
	}
	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Library.CreateBook(ctx, input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to create book", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleAssistBook(ctx context.Context, input *AssistBookInput) (*BookOutput, error) {
	if err := s.allowAICall(); err != nil {
		return nil, err
	}

	var (
		book *domain.Book
		err  error
	)
	switch {
	case input.Body.CoverImage != "":
		var imageData []byte
		imageData, err = base64.StdEncoding.DecodeString(input.Body.CoverImage)
		if err != nil {
			return nil, huma.Error400BadRequest("cover_image must be valid base64")
		}
		mimeType := input.Body.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		book, err = s.services.Library.AssistedAddByCover(ctx, imageData, mimeType)
	case input.Body.Title != "":
		book, err = s.services.Library.AssistedAddByTitle(ctx, input.Body.Title)
	default:
		return nil, huma.Error400BadRequest("Either title or cover_image is required")
	}

	if err != nil {
		s.logger.Error("Assisted book creation failed", "error", err)
		return nil, huma.Error502BadGateway("Failed to create book", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Library.GetBook(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("Book not found", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Library.UpdateBook(ctx, input.ID, input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to update book", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	if err := s.services.Library.DeleteBook(ctx, input.ID); err != nil {
		return nil, huma.Error404NotFound("Book not found", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*BookOutput, error) {
	book, err := s.services.Library.UpdateProgress(ctx, input.ID, input.Body.CurrentPage)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to update progress", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleMarkFinished(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Library.MarkFinished(ctx, input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("Book not found", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleAddQuote(ctx context.Context, input *AddQuoteInput) (*BookOutput, error) {
	book, err := s.services.Library.AddQuote(ctx, input.ID, input.Body.Quote)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to add quote", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleRemoveQuote(ctx context.Context, input *RemoveQuoteInput) (*BookOutput, error) {
	book, err := s.services.Library.RemoveQuote(ctx, input.ID, input.Index)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to remove quote", err)
	}
	return &BookOutput{Body: book}, nil
}
