package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/service"
)

func (s *Server) registerReaderRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "openReader",
		Method:      http.MethodPost,
		Path:        "/api/v1/reader/open",
		Summary:     "Open a book in the reader",
		Description: "Starts the single reader session, restoring the last saved page. Any open book is closed first.",
		Tags:        []string{"Reader"},
	}, s.handleOpenReader)

	huma.Register(s.api, huma.Operation{
		OperationID:   "closeReader",
		Method:        http.MethodPost,
		Path:          "/api/v1/reader/close",
		Summary:       "Close the reader",
		Tags:          []string{"Reader"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleCloseReader)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReaderView",
		Method:      http.MethodGet,
		Path:        "/api/v1/reader",
		Summary:     "Get the current reader page",
		Tags:        []string{"Reader"},
	}, s.handleGetReaderView)

	huma.Register(s.api, huma.Operation{
		OperationID: "goToPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/reader/pages/{index}",
		Summary:     "Turn to an absolute page",
		Description: "Stops narration, persists the position, and commits reading progress",
		Tags:        []string{"Reader"},
	}, s.handleGoToPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "nextPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/reader/next",
		Summary:     "Turn one page forward",
		Tags:        []string{"Reader"},
	}, s.handleNextPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "prevPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/reader/prev",
		Summary:     "Turn one page back",
		Tags:        []string{"Reader"},
	}, s.handlePrevPage)
}

// OpenReaderInput is the request for opening a book.
type OpenReaderInput struct {
	Body struct {
		BookID string `json:"book_id" minLength:"1" doc:"Book to open"`
	}
}

// ReaderViewOutput wraps the rendered page for Huma.
type ReaderViewOutput struct {
	Body *service.ReaderView
}

// PageIndexInput identifies a reader page.
type PageIndexInput struct {
	Index int `path:"index" minimum:"0" doc:"Zero-based page index"`
}

func (s *Server) handleOpenReader(ctx context.Context, input *OpenReaderInput) (*ReaderViewOutput, error) {
	view, err := s.services.Reader.OpenBook(ctx, input.Body.BookID)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to open book", err)
	}
	return &ReaderViewOutput{Body: view}, nil
}

func (s *Server) handleCloseReader(ctx context.Context, _ *struct{}) (*struct{}, error) {
	s.services.Reader.CloseBook(ctx)
	return &struct{}{}, nil
}

func (s *Server) handleGetReaderView(ctx context.Context, _ *struct{}) (*ReaderViewOutput, error) {
	view, err := s.services.Reader.CurrentView(ctx)
	if err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &ReaderViewOutput{Body: view}, nil
}

func (s *Server) handleGoToPage(ctx context.Context, input *PageIndexInput) (*ReaderViewOutput, error) {
	view, err := s.services.Reader.GoToPage(ctx, input.Index)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to turn page", err)
	}
	return &ReaderViewOutput{Body: view}, nil
}

func (s *Server) handleNextPage(ctx context.Context, _ *struct{}) (*ReaderViewOutput, error) {
	view, err := s.services.Reader.NextPage(ctx)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to turn page", err)
	}
	return &ReaderViewOutput{Body: view}, nil
}

func (s *Server) handlePrevPage(ctx context.Context, _ *struct{}) (*ReaderViewOutput, error) {
	view, err := s.services.Reader.PrevPage(ctx)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to turn page", err)
	}
	return &ReaderViewOutput{Body: view}, nil
}
