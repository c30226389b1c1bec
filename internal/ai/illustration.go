package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// FallbackImagePrompt is used when prompt distillation fails; illustration
// generation proceeds with a neutral scene rather than aborting.
const FallbackImagePrompt = "A single open book on a wooden table."

// promptSourceLimit caps how much page text is sent for prompt distillation.
const promptSourceLimit = 1000

// truncateExcerpt cuts text to at most limit bytes without splitting a rune.
func truncateExcerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

// ImagePrompt distills a page of book text into a one-sentence image prompt.
// On failure it returns FallbackImagePrompt along with the error.
func (c *Client) ImagePrompt(ctx context.Context, pageText string) (string, error) {
	excerpt := truncateExcerpt(pageText, promptSourceLimit)

	prompt := fmt.Sprintf(`You are an AI assistant that creates succinct, descriptive prompts for an image generation model.
Based on the following text from a book, create a single, descriptive sentence that captures the main scene, mood, and key elements.
The prompt should be suitable for generating a visually compelling illustration.
Focus on visual details. Do not include character names unless they are universally known.
For example, instead of "Harry Potter cast a spell", say "A young wizard with a scar on his forehead points a glowing wand, casting a brilliant spell in a dark castle corridor."

Book Text:
%q

Image Generation Prompt:`, excerpt+"...")

	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return FallbackImagePrompt, fmt.Errorf("image prompt: %w", err)
	}

	// Strip quotes the model tends to wrap the sentence in.
	return strings.ReplaceAll(strings.TrimSpace(text), `"`, ""), nil
}

// GenerateImage renders an illustration for a scene prompt and returns the
// JPEG bytes.
func (c *Client) GenerateImage(ctx context.Context, scenePrompt string) ([]byte, error) {
	fullPrompt := fmt.Sprintf("An atmospheric, digital painting style illustration for a book. The scene is: %s. Cinematic lighting, evocative mood.", scenePrompt)

	resp, err := c.predict(ctx, predictRequest{
		Instances: []predictInstance{{Prompt: fullPrompt}},
		Parameters: predictParameters{
			SampleCount:    1,
			AspectRatio:    "3:4",
			OutputMimeType: "image/jpeg",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return nil, ErrEmptyResponse
	}

	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
