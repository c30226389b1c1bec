package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/sse"
)

const bookPrefix = "book:"

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book already exists")
)

// Book Operations

// CreateBook creates a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	key := buildKey(bookPrefix, book.ID)
	defer releaseKey(key)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	book.Normalize()

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
			slog.String("author", book.Author),
			slog.Int("total_pages", book.TotalPages),
		)
	}

	s.eventEmitter.Emit(sse.NewBookCreatedEvent(book))
	s.indexBook(book)
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	key := buildKey(bookPrefix, id)
	defer releaseKey(key)

	var book domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &book)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	// Repair drift between page position and status from older records.
	book.Normalize()
	return &book, nil
}

// UpdateBook updates an existing book.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	key := buildKey(bookPrefix, book.ID)
	defer releaseKey(key)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}

	book.Normalize()
	book.Touch()

	err = s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book updated", "id", book.ID, "title", book.Title)
	}

	s.eventEmitter.Emit(sse.NewBookUpdatedEvent(book))
	s.indexBook(book)
	return nil
}

// DeleteBook deletes a book along with its reader position.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := buildKey(bookPrefix, id)
		defer releaseKey(key)
		if err := txn.Delete(key); err != nil {
			return err
		}

		posKey := buildKey(readerPositionPrefix, id)
		defer releaseKey(posKey)
		return txn.Delete(posKey)
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book deleted", "id", id, "title", book.Title)
	}

	s.eventEmitter.Emit(sse.NewBookDeletedEvent(id))

	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteBook(context.Background(), id); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to remove book from search index", "book_id", id, "error", err)
				}
			}
		}()
	}
	return nil
}

// BookExists checks if a book exists in our db by ID.
func (s *Store) BookExists(ctx context.Context, id string) (bool, error) {
	key := buildKey(bookPrefix, id)
	defer releaseKey(key)
	return s.exists(key)
}

// ListBooks returns every book in the library, newest first. A personal
// library stays small enough that cursoring would be ceremony.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	prefix := []byte(bookPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var book domain.Book
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return fmt.Errorf("unmarshal book %s: %w", it.Item().Key(), err)
			}
			book.Normalize()
			books = append(books, &book)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	slices.SortFunc(books, func(a, b *domain.Book) int {
		return b.AddedAt.Compare(a.AddedAt)
	})
	return books, nil
}

// CountFinishedBooks counts books whose status is finished. Used for goal
// progress.
func (s *Store) CountFinishedBooks(ctx context.Context) (int, error) {
	books, err := s.ListBooks(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range books {
		if b.Status == domain.StatusFinished {
			count++
		}
	}
	return count, nil
}

// indexBook pushes a book into the search index asynchronously.
func (s *Store) indexBook(book *domain.Book) {
	if s.searchIndexer == nil {
		return
	}
	go func() {
		if err := s.searchIndexer.IndexBook(context.Background(), book); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to index book for search", "book_id", book.ID, "error", err)
			}
		}
	}()
}
