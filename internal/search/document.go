// Package search provides full-text search over the personal library using
// Bleve. It covers title, author, and summary text with fuzzy matching and
// reading-status facets.
package search

import (
	"github.com/heysmata/strava-for-books/internal/domain"
)

// BookDocument is the document structure for the Bleve index. The library
// holds only books, so there is no type discrimination; the document is a
// flattened projection of the domain book minus the content blob, which is
// far too large to index usefully.
type BookDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Summary string `json:"summary,omitempty"`
	Status  string `json:"status"`

	// Numeric fields for range queries and sorting
	TotalPages int `json:"total_pages,omitempty"`

	// Timestamps for sorting
	AddedAt   int64 `json:"added_at"`   // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// DocumentFromBook projects a domain book into its index document.
func DocumentFromBook(book *domain.Book) *BookDocument {
	return &BookDocument{
		ID:         book.ID,
		Title:      book.Title,
		Author:     book.Author,
		Summary:    book.Summary,
		Status:     string(book.Status),
		TotalPages: book.TotalPages,
		AddedAt:    book.AddedAt.UnixMilli(),
		UpdatedAt:  book.UpdatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *BookDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"author":     d.Author,
		"status":     d.Status,
		"added_at":   d.AddedAt,
		"updated_at": d.UpdatedAt,
	}

	// Optional fields - only add if non-empty
	if d.Summary != "" {
		m["summary"] = d.Summary
	}
	if d.TotalPages > 0 {
		m["total_pages"] = d.TotalPages
	}

	return m
}
