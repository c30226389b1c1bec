package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search the library",
		Description: "Full-text search over titles, authors, and summaries",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query    string `query:"q" minLength:"1" maxLength:"200" doc:"Search query"`
	Statuses string `query:"statuses" doc:"Comma-separated reading statuses to filter by (to-read,reading,finished)"`
	Limit    int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset   int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Facets   bool   `query:"facets" doc:"Include status facet counts"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.IncludeFacets = input.Facets
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Offset > 0 {
		params.Offset = input.Offset
	}
	if input.Statuses != "" {
		for _, status := range strings.Split(input.Statuses, ",") {
			if status = strings.TrimSpace(status); status != "" {
				params.Statuses = append(params.Statuses, status)
			}
		}
	}

	result, err := s.services.Library.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", input.Query)
		return nil, huma.Error500InternalServerError("Search failed", err)
	}
	return &SearchOutput{Body: result}, nil
}
