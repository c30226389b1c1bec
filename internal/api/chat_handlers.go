package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/domain"
)

func (s *Server) registerChatRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getChatHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/chat",
		Summary:     "Get the book conversation",
		Description: "Returns the active conversation for the book; empty if the companion last discussed a different book",
		Tags:        []string{"Chat"},
	}, s.handleGetChatHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "sendChatMessage",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/{id}/chat",
		Summary:     "Ask the book companion",
		Description: "The companion answers with knowledge of the book only up to the reader's current page",
		Tags:        []string{"Chat"},
	}, s.handleSendChatMessage)
}

// ChatHistoryOutput wraps a conversation for Huma.
type ChatHistoryOutput struct {
	Body []domain.ChatMessage
}

// SendChatInput is the request for a companion message.
type SendChatInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body struct {
		Message string `json:"message" minLength:"1" maxLength:"2000" doc:"Question or comment for the companion"`
	}
}

func (s *Server) handleGetChatHistory(ctx context.Context, input *BookIDInput) (*ChatHistoryOutput, error) {
	return &ChatHistoryOutput{Body: s.services.Chat.History(ctx, input.ID)}, nil
}

func (s *Server) handleSendChatMessage(ctx context.Context, input *SendChatInput) (*ChatHistoryOutput, error) {
	if err := s.allowAICall(); err != nil {
		return nil, err
	}

	messages, err := s.services.Chat.Send(ctx, input.ID, input.Body.Message)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to send message", err)
	}
	return &ChatHistoryOutput{Body: messages}, nil
}
