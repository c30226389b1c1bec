package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/domain"
)

func (s *Server) registerImportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "importDocument",
		Method:        http.MethodPost,
		Path:          "/api/v1/import",
		Summary:       "Import a document",
		Description:   "Extracts a PDF on the server's filesystem into a readable library entry. Files dropped in the import inbox are picked up automatically; this triggers the same pipeline by hand.",
		Tags:          []string{"Import"},
		DefaultStatus: http.StatusCreated,
	}, s.handleImportDocument)
}

// ImportInput names a document on the server's filesystem.
type ImportInput struct {
	Body struct {
		Path string `json:"path" minLength:"1" doc:"Absolute path to the document"`
	}
}

// ImportOutput wraps the imported book for Huma.
type ImportOutput struct {
	Body *domain.Book
}

func (s *Server) handleImportDocument(ctx context.Context, input *ImportInput) (*ImportOutput, error) {
	if s.services.Import == nil {
		return nil, huma.Error503ServiceUnavailable("Document import is unavailable; poppler tools not found")
	}

	book, err := s.services.Import.ImportFile(ctx, input.Body.Path)
	if err != nil {
		s.logger.Error("Document import failed", "error", err, "path", input.Body.Path)
		return nil, huma.Error400BadRequest("Failed to import document", err)
	}
	return &ImportOutput{Body: book}, nil
}
