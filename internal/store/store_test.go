package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, nil, NewNoopEmitter())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// Helper function to create a test book
func createTestBook(id string) *domain.Book {
	now := time.Now()
	return &domain.Book{
		ID:          id,
		Title:       "Test Book",
		Author:      "Test Author",
		CoverImage:  "https://covers.example.com/" + id + ".jpg",
		Summary:     "A test book summary",
		TotalPages:  300,
		CurrentPage: 0,
		Status:      domain.StatusToRead,
		Quotes:      []string{},
		AddedAt:     now,
		UpdatedAt:   now,
	}
}
