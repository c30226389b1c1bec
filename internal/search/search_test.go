package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{
		DataPath: t.TempDir(),
		Logger:   nil,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = index.Close()
	})
	return index
}

func testDoc(id, title, author, status string) *BookDocument {
	return &BookDocument{
		ID:      id,
		Title:   title,
		Author:  author,
		Status:  status,
		AddedAt: time.Now().UnixMilli(),
	}
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_IndexDocument(t *testing.T) {
	index := setupTestIndex(t)

	err := index.IndexDocument(testDoc("book-123", "The Hobbit", "J.R.R. Tolkien", "reading"))
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchIndex_DocumentFromBook(t *testing.T) {
	book := &domain.Book{
		ID:         "book-1",
		Title:      "Dune",
		Author:     "Frank Herbert",
		Summary:    "Desert planet politics",
		TotalPages: 412,
		Status:     domain.StatusToRead,
		AddedAt:    time.Now(),
	}

	doc := DocumentFromBook(book)
	assert.Equal(t, "book-1", doc.ID)
	assert.Equal(t, "Dune", doc.Title)
	assert.Equal(t, "to-read", doc.Status)
	assert.Equal(t, 412, doc.TotalPages)

	m := doc.ToMap()
	assert.Equal(t, "Dune", m["title"])
	assert.Equal(t, "Desert planet politics", m["summary"])
}

func TestSearch_ByTitle(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*BookDocument{
		testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished"),
		testDoc("book-2", "The Silmarillion", "J.R.R. Tolkien", "to-read"),
		testDoc("book-3", "Dune", "Frank Herbert", "reading"),
	}))

	params := DefaultSearchParams()
	params.Query = "hobbit"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, "The Hobbit", result.Hits[0].Title)
}

func TestSearch_ByAuthor(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*BookDocument{
		testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished"),
		testDoc("book-2", "Dune", "Frank Herbert", "reading"),
	}))

	params := DefaultSearchParams()
	params.Query = "herbert"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-2", result.Hits[0].ID)
}

func TestSearch_FuzzyMatchesTypos(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished")))

	params := DefaultSearchParams()
	params.Query = "hobit"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearch_StatusFilter(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*BookDocument{
		testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished"),
		testDoc("book-2", "Dune", "Frank Herbert", "reading"),
		testDoc("book-3", "Emma", "Jane Austen", "reading"),
	}))

	params := DefaultSearchParams()
	params.Statuses = []string{"reading"}

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
	for _, hit := range result.Hits {
		assert.Equal(t, "reading", hit.Status)
	}
}

func TestSearch_StatusFacets(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*BookDocument{
		testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished"),
		testDoc("book-2", "Dune", "Frank Herbert", "reading"),
		testDoc("book-3", "Emma", "Jane Austen", "reading"),
	}))

	params := DefaultSearchParams()

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Facets.Statuses)

	counts := map[string]int{}
	for _, f := range result.Facets.Statuses {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["reading"])
	assert.Equal(t, 1, counts["finished"])
}

func TestSearch_DeleteDocument(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished")))
	require.NoError(t, index.DeleteDocument("book-1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocuments([]*BookDocument{
		testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished"),
		testDoc("book-2", "Dune", "Frank Herbert", "reading"),
	}))

	params := DefaultSearchParams()
	params.SortBy = "title"
	params.SortOrder = "asc"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(testDoc("book-1", "The Hobbit", "J.R.R. Tolkien", "finished")))
	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
