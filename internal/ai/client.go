// Package ai is a rate-limited client for the generative backend that powers
// assisted metadata lookup, the chat companion, and page illustrations. It
// speaks the Gemini REST surface; the base URL is injectable so tests can
// run against a local server.
package ai

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/ratelimit"
)

const (
	// HTTP client settings
	defaultTimeout = 30 * time.Second

	// Burst of 3 on top of the configured per-minute pace.
	defaultBurst = 3

	// Rate limiter keys. Text and image generation count against separate
	// buckets; image calls are far slower and must not starve chat.
	limitKeyText  = "text"
	limitKeyImage = "image"
)

// Client is a rate-limited generative backend client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger

	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
}

// New creates a new AI client from configuration.
func New(cfg config.AIConfig, logger *slog.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:    ratelimit.New(float64(rpm)/60.0, defaultBurst),
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
	}
}

// Enabled reports whether the client has credentials. All assisted features
// degrade gracefully when it returns false.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// generate executes a generateContent call against the text model and
// returns the first candidate's text.
func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if err := c.limiter.Wait(ctx, limitKeyText); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.textModel)
	body, err := c.doRequest(ctx, url, req)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := resp.firstText()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// predict executes a predict call against the image model and returns the
// raw base64-encoded predictions.
func (c *Client) predict(ctx context.Context, req predictRequest) (*predictResponse, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if err := c.limiter.Wait(ctx, limitKeyImage); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predict", c.baseURL, c.imageModel)
	body, err := c.doRequest(ctx, url, req)
	if err != nil {
		return nil, err
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// doRequest posts a JSON payload and returns the response body.
func (c *Client) doRequest(ctx context.Context, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	if c.logger != nil {
		c.logger.Debug("generative backend request", "url", url)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// sanitizeJSON strips the markdown fence the model sometimes wraps JSON
// responses in.
func sanitizeJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
