package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/heysmata/strava-for-books/internal/http/response"
	"github.com/heysmata/strava-for-books/internal/illustration"
	"github.com/heysmata/strava-for-books/internal/util"
)

func (s *Server) registerIllustrationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listIllustrations",
		Method:      http.MethodGet,
		Path:        "/api/v1/reader/illustrations",
		Summary:     "List cached page illustrations",
		Description: "Returns the open session's illustrations keyed by page index",
		Tags:        []string{"Illustrations"},
	}, s.handleListIllustrations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setIllustrationsEnabled",
		Method:        http.MethodPut,
		Path:          "/api/v1/reader/illustrations",
		Summary:       "Toggle illustration generation",
		Description:   "Disabling keeps cached pages; re-enabling picks the current page back up",
		Tags:          []string{"Illustrations"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSetIllustrationsEnabled)
}

// IllustrationsOutput wraps the illustration cache for Huma.
type IllustrationsOutput struct {
	Body map[int]illustration.Illustration
}

// SetIllustrationsInput toggles generation for the open session.
type SetIllustrationsInput struct {
	Body struct {
		Enabled bool `json:"enabled" doc:"Whether to generate illustrations for visited pages"`
	}
}

func (s *Server) handleListIllustrations(ctx context.Context, _ *struct{}) (*IllustrationsOutput, error) {
	cache, err := s.services.Reader.Illustrations(ctx)
	if err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &IllustrationsOutput{Body: cache}, nil
}

func (s *Server) handleSetIllustrationsEnabled(ctx context.Context, input *SetIllustrationsInput) (*struct{}, error) {
	if input.Body.Enabled {
		if err := s.allowAICall(); err != nil {
			return nil, err
		}
	}
	if err := s.services.Reader.SetIllustrationsEnabled(ctx, input.Body.Enabled); err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &struct{}{}, nil
}

// handleGetIllustrationImage serves a finished illustration's JPEG bytes.
// GET /api/v1/books/{id}/illustrations/{page}
func (s *Server) handleGetIllustrationImage(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 0 {
		response.BadRequest(w, "Invalid page index", s.logger)
		return
	}

	data, err := s.services.Reader.IllustrationData(r.Context(), bookID, page)
	if err != nil {
		response.NotFound(w, "Illustration not found", s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", fmt.Sprintf("%s-page-%d.jpg", s.mediaFilenameStem(r.Context(), bookID), page)))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write illustration response", "error", err)
	}
}

// mediaFilenameStem derives a download filename stem from the book's title,
// falling back to its ID when the title can't be loaded.
func (s *Server) mediaFilenameStem(ctx context.Context, bookID string) string {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return bookID
	}
	return util.FilenameSlug(book.Title)
}

// handleGetCoverImage serves a stored cover image.
// GET /api/v1/books/{id}/cover
func (s *Server) handleGetCoverImage(w http.ResponseWriter, r *http.Request) {
	if s.services.Import == nil {
		response.NotFound(w, "Cover not found", s.logger)
		return
	}

	bookID := chi.URLParam(r, "id")
	data, err := s.services.Import.CoverData(r.Context(), bookID)
	if err != nil {
		response.NotFound(w, "Cover not found", s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", s.mediaFilenameStem(r.Context(), bookID)+"-cover.jpg"))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write cover response", "error", err)
	}
}
