package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/domain"
)

func (s *Server) registerGoalRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getGoal",
		Method:      http.MethodGet,
		Path:        "/api/v1/goal",
		Summary:     "Get the yearly reading goal",
		Tags:        []string{"Goal"},
	}, s.handleGetGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "setGoal",
		Method:      http.MethodPut,
		Path:        "/api/v1/goal",
		Summary:     "Set the yearly reading goal",
		Tags:        []string{"Goal"},
	}, s.handleSetGoal)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGoalProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/goal/progress",
		Summary:     "Get goal progress",
		Description: "Returns the goal with the finished-book count and completion percentage",
		Tags:        []string{"Goal"},
	}, s.handleGetGoalProgress)
}

// GoalOutput wraps a reading goal for Huma.
type GoalOutput struct {
	Body domain.ReadingGoal
}

// SetGoalInput is the request for changing the yearly target.
type SetGoalInput struct {
	Body struct {
		Target int `json:"target" minimum:"1" doc:"Books to finish this year"`
	}
}

// GoalProgressOutput wraps goal progress for Huma.
type GoalProgressOutput struct {
	Body domain.GoalProgress
}

func (s *Server) handleGetGoal(ctx context.Context, _ *struct{}) (*GoalOutput, error) {
	goal, err := s.services.Library.GetGoal(ctx)
	if err != nil {
		s.logger.Error("Failed to get goal", "error", err)
		return nil, huma.Error500InternalServerError("Failed to retrieve goal", err)
	}
	return &GoalOutput{Body: goal}, nil
}

func (s *Server) handleSetGoal(ctx context.Context, input *SetGoalInput) (*GoalOutput, error) {
	goal, err := s.services.Library.SetGoal(ctx, input.Body.Target)
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to set goal", err)
	}
	return &GoalOutput{Body: goal}, nil
}

func (s *Server) handleGetGoalProgress(ctx context.Context, _ *struct{}) (*GoalProgressOutput, error) {
	progress, err := s.services.Library.GoalProgress(ctx)
	if err != nil {
		s.logger.Error("Failed to compute goal progress", "error", err)
		return nil, huma.Error500InternalServerError("Failed to compute goal progress", err)
	}
	return &GoalProgressOutput{Body: progress}, nil
}
