package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// allowAICall admits one AI-backed request through the shared limiter.
// Generative calls are the only expensive thing this server does, so they
// get their own budget on top of the global request limit.
func (s *Server) allowAICall() error {
	if !s.aiRateLimiter.Allow("ai") {
		return huma.Error429TooManyRequests("AI request limit reached. Please slow down.")
	}
	return nil
}
