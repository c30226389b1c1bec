package ai

import "errors"

var (
	// ErrDisabled means no API key is configured.
	ErrDisabled = errors.New("generative backend disabled: no API key configured")
	// ErrRateLimited means the backend rejected the call for quota reasons.
	ErrRateLimited = errors.New("generative backend rate limited")
	// ErrUnauthorized means the API key was rejected.
	ErrUnauthorized = errors.New("generative backend rejected credentials")
	// ErrServer means the backend returned a 5xx.
	ErrServer = errors.New("generative backend server error")
	// ErrEmptyResponse means the backend returned no usable candidate.
	ErrEmptyResponse = errors.New("generative backend returned no content")
)
