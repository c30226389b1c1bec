package ai

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
)

// Metadata fallbacks, used field by field when the model omits a value and
// wholesale when the call fails.
const (
	FallbackAuthor     = "Unknown Author"
	FallbackTitle      = "Unknown Title"
	FallbackSummary    = "No summary available."
	FallbackCoverURL   = "https://via.placeholder.com/300x450.png?text=No+Cover"
	FallbackTotalPages = 300
)

// BookMetadata is the assisted-add lookup result.
type BookMetadata struct {
	Title      string `json:"title,omitempty"`
	Author     string `json:"author"`
	Summary    string `json:"summary"`
	CoverImage string `json:"coverImage"`
	TotalPages int    `json:"totalPages"`
}

// applyDefaults fills missing fields with their fallbacks.
func (m *BookMetadata) applyDefaults() {
	if m.Title == "" {
		m.Title = FallbackTitle
	}
	if m.Author == "" {
		m.Author = FallbackAuthor
	}
	if m.Summary == "" {
		m.Summary = FallbackSummary
	}
	if m.CoverImage == "" {
		m.CoverImage = FallbackCoverURL
	}
	if m.TotalPages <= 0 {
		m.TotalPages = FallbackTotalPages
	}
}

// MetadataFromTitle looks up author, summary, cover URL, and page count for
// a book title. The returned metadata always has every field populated;
// lookup failures surface as an error alongside usable fallback values so
// callers can still complete the add.
func (c *Client) MetadataFromTitle(ctx context.Context, title string) (*BookMetadata, error) {
	prompt := fmt.Sprintf(`Based on the book title %q, provide the author, a spoiler-free summary, a public domain URL for a cover image, and the typical page count. Format the response as a JSON object with keys "author", "summary", "coverImage", and "totalPages". If you cannot determine the author, set it to "Unknown Author".`, title)

	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return titleFallback(title), err
	}

	var meta BookMetadata
	if err := json.Unmarshal([]byte(sanitizeJSON(text)), &meta); err != nil {
		if c.logger != nil {
			c.logger.Warn("unparseable metadata response", "title", title, "error", err)
		}
		return titleFallback(title), fmt.Errorf("parse metadata: %w", err)
	}

	meta.Title = title
	meta.applyDefaults()
	return &meta, nil
}

// MetadataFromCover identifies a book from a cover photo and returns its
// metadata, fallback-filled the same way as MetadataFromTitle.
func (c *Client) MetadataFromCover(ctx context.Context, imageData []byte, mimeType string) (*BookMetadata, error) {
	prompt := `Analyze the provided book cover image. Identify the book's title and author. Provide a brief, spoiler-free summary, and the typical page count. Also, find a high-quality public-domain URL for this cover image. Respond ONLY with a JSON object containing 'title', 'author', 'summary', 'coverImage', and 'totalPages'. If any detail cannot be found, use a sensible default (e.g., 'Unknown Author', 'No summary available.', a placeholder image URL).`

	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(imageData),
			}},
			{Text: prompt},
		}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return coverFallback(), err
	}

	var meta BookMetadata
	if err := json.Unmarshal([]byte(sanitizeJSON(text)), &meta); err != nil {
		if c.logger != nil {
			c.logger.Warn("unparseable cover metadata response", "error", err)
		}
		return coverFallback(), fmt.Errorf("parse metadata: %w", err)
	}

	meta.applyDefaults()
	return &meta, nil
}

func titleFallback(title string) *BookMetadata {
	return &BookMetadata{
		Title:      title,
		Author:     FallbackAuthor,
		Summary:    fmt.Sprintf("Could not generate a summary for %q. Please add one manually.", title),
		CoverImage: FallbackCoverURL,
		TotalPages: FallbackTotalPages,
	}
}

func coverFallback() *BookMetadata {
	return &BookMetadata{
		Title:      FallbackTitle,
		Author:     FallbackAuthor,
		Summary:    "Could not analyze the book cover. Please add details manually.",
		CoverImage: FallbackCoverURL,
		TotalPages: FallbackTotalPages,
	}
}
