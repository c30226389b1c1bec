// Package api provides the HTTP API server and handlers for the reading
// tracker.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/heysmata/strava-for-books/internal/http/response"
	"github.com/heysmata/strava-for-books/internal/sse"
	"github.com/heysmata/strava-for-books/internal/store"
)

// Version is reported by the health endpoint and the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         *store.Store
	services      *Services
	sseHandler    *sse.Handler
	sseManager    *sse.Manager
	router        *chi.Mux
	api           huma.API
	aiRateLimiter *RateLimiter
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, sseHandler *sse.Handler, sseManager *sse.Manager, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("BookWyrm API", Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s := &Server{
		store:         st,
		services:      services,
		sseHandler:    sseHandler,
		sseManager:    sseManager,
		router:        router,
		aiRateLimiter: NewRateLimiter(30, time.Minute, 10),
		logger:        logger,
	}

	s.setupMiddleware()

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerGoalRoutes()
	s.registerSearchRoutes()
	s.registerReaderRoutes()
	s.registerPlaybackRoutes()
	s.registerIllustrationRoutes()
	s.registerChatRoutes()
	s.registerImportRoutes()
	s.setupRawRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
	s.router.Use(RateLimitMiddleware(NewRateLimiter(300, time.Minute, 100), s.logger))
}

// setupRawRoutes wires the endpoints that stream bytes instead of JSON:
// the SSE event stream and stored images.
func (s *Server) setupRawRoutes() {
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	s.router.Get("/api/v1/books/{id}/cover", s.handleGetCoverImage)
	s.router.Get("/api/v1/books/{id}/illustrations/{page}", s.handleGetIllustrationImage)
}

// EnvelopeTransformer wraps every huma response body in the same
// {success, data} envelope the raw endpoints use, so clients parse one
// shape everywhere.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return &response.Envelope{
			Success: false,
			Error:   apiErr.Message,
		}, nil
	}
	success := len(status) > 0 && status[0] == '2'
	return &response.Envelope{
		Success: success,
		Data:    v,
	}, nil
}
