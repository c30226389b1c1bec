package ai

import (
	"context"
	"fmt"

	"github.com/heysmata/strava-for-books/internal/domain"
)

// ChatReply answers a reader's question about a book. The prompt pins the
// model's knowledge to the reader's current page so replies never spoil
// anything past it.
func (c *Client) ChatReply(ctx context.Context, book *domain.Book, userQuery string) (string, error) {
	prompt := fmt.Sprintf(`You are BookWyrm AI, a helpful companion for readers. You are discussing the book %q by %s.
The user has read up to page %d of %d.
The book's summary is: %q.

IMPORTANT: Do NOT reveal any plot points or character developments that occur after page %d. Your knowledge is strictly limited to the content up to that page. If the user asks about future events, gently decline to answer and remind them it's to avoid spoilers.

User's question: %q

Your response:`,
		book.Title, book.Author,
		book.CurrentPage, book.TotalPages,
		book.Summary,
		book.CurrentPage,
		userQuery,
	)

	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}
	return text, nil
}
