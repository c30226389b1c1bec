package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/heysmata/strava-for-books/internal/speech"
)

func (s *Server) registerPlaybackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPlaybackState",
		Method:      http.MethodGet,
		Path:        "/api/v1/reader/playback",
		Summary:     "Get narration state",
		Description: "Returns the live playback snapshot; state and highlight changes also stream over SSE",
		Tags:        []string{"Playback"},
	}, s.handleGetPlaybackState)

	huma.Register(s.api, huma.Operation{
		OperationID:   "playNarration",
		Method:        http.MethodPost,
		Path:          "/api/v1/reader/playback/play",
		Summary:       "Start or resume narration",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handlePlay)

	huma.Register(s.api, huma.Operation{
		OperationID:   "pauseNarration",
		Method:        http.MethodPost,
		Path:          "/api/v1/reader/playback/pause",
		Summary:       "Pause narration",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handlePause)

	huma.Register(s.api, huma.Operation{
		OperationID:   "stopNarration",
		Method:        http.MethodPost,
		Path:          "/api/v1/reader/playback/stop",
		Summary:       "Stop narration",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleStop)

	huma.Register(s.api, huma.Operation{
		OperationID:   "selectParagraph",
		Method:        http.MethodPost,
		Path:          "/api/v1/reader/playback/paragraph",
		Summary:       "Narrate from a paragraph",
		Description:   "Starts narration at the chosen paragraph of the open page",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSelectParagraph)

	huma.Register(s.api, huma.Operation{
		OperationID: "listVoices",
		Method:      http.MethodGet,
		Path:        "/api/v1/reader/playback/voices",
		Summary:     "List narration voices",
		Tags:        []string{"Playback"},
	}, s.handleListVoices)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setVoice",
		Method:        http.MethodPut,
		Path:          "/api/v1/reader/playback/voice",
		Summary:       "Set the narration voice",
		Description:   "Applies from the next utterance; the current one keeps its voice",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSetVoice)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setRate",
		Method:        http.MethodPut,
		Path:          "/api/v1/reader/playback/rate",
		Summary:       "Set the narration rate",
		Description:   "Applies from the next utterance; the current one keeps its rate",
		Tags:          []string{"Playback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleSetRate)
}

// PlaybackStateOutput wraps the narration snapshot for Huma.
type PlaybackStateOutput struct {
	Body speech.Snapshot
}

// SelectParagraphInput picks a paragraph to narrate from.
type SelectParagraphInput struct {
	Body struct {
		Index int `json:"index" minimum:"0" doc:"Zero-based paragraph index on the open page"`
	}
}

// VoicesOutput wraps the voice list for Huma.
type VoicesOutput struct {
	Body []speech.Voice
}

// SetVoiceInput is the request for changing the narration voice.
type SetVoiceInput struct {
	Body struct {
		Voice string `json:"voice" minLength:"1" doc:"Voice ID from the voices list"`
	}
}

// SetRateInput is the request for changing the narration speed.
type SetRateInput struct {
	Body struct {
		Rate float64 `json:"rate" minimum:"0.25" maximum:"4" doc:"Speed multiplier (1.0 = normal)"`
	}
}

func (s *Server) handleGetPlaybackState(ctx context.Context, _ *struct{}) (*PlaybackStateOutput, error) {
	return &PlaybackStateOutput{Body: s.services.Reader.PlaybackState(ctx)}, nil
}

func (s *Server) handlePlay(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := s.services.Reader.Play(ctx); err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handlePause(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := s.services.Reader.Pause(ctx); err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleStop(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := s.services.Reader.StopPlayback(ctx); err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleSelectParagraph(ctx context.Context, input *SelectParagraphInput) (*struct{}, error) {
	if err := s.services.Reader.SelectParagraph(ctx, input.Body.Index); err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleListVoices(ctx context.Context, _ *struct{}) (*VoicesOutput, error) {
	return &VoicesOutput{Body: s.services.Reader.Voices(ctx)}, nil
}

func (s *Server) handleSetVoice(ctx context.Context, input *SetVoiceInput) (*struct{}, error) {
	if err := s.services.Reader.SetVoice(ctx, input.Body.Voice); err != nil {
		return nil, huma.Error409Conflict("No open reader session", err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleSetRate(ctx context.Context, input *SetRateInput) (*struct{}, error) {
	if err := s.services.Reader.SetRate(ctx, input.Body.Rate); err != nil {
		return nil, huma.Error400BadRequest("Failed to set rate", err)
	}
	return &struct{}{}, nil
}
