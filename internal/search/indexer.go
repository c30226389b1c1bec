package search

import (
	"context"

	"github.com/heysmata/strava-for-books/internal/domain"
)

// Indexer adapts the search index to the store's indexing hooks so catalog
// writes keep search in sync.
type Indexer struct {
	index *SearchIndex
}

// NewIndexer creates an indexer over the given index.
func NewIndexer(index *SearchIndex) *Indexer {
	return &Indexer{index: index}
}

// IndexBook adds or updates a book in the index.
func (ix *Indexer) IndexBook(_ context.Context, book *domain.Book) error {
	return ix.index.IndexDocument(DocumentFromBook(book))
}

// DeleteBook removes a book from the index.
func (ix *Indexer) DeleteBook(_ context.Context, bookID string) error {
	return ix.index.DeleteDocument(bookID)
}
