package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const readerPositionPrefix = "reader:pos:"

// ReaderPosition is the persisted reader location for one book: the index
// of the reader page last displayed, on the reader's own pagination scale.
type ReaderPosition struct {
	PageIndex int `json:"page_index"`
}

// GetReaderPosition returns the saved reader position for a book. Missing
// or unreadable records mean "start from the beginning".
func (s *Store) GetReaderPosition(ctx context.Context, bookID string) (ReaderPosition, error) {
	key := buildKey(readerPositionPrefix, bookID)
	defer releaseKey(key)

	var pos ReaderPosition
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) && s.logger != nil {
			s.logger.Warn("reader position unreadable, starting from page one",
				"book_id", bookID, "error", err)
		}
		return ReaderPosition{}, nil
	}

	if pos.PageIndex < 0 {
		pos.PageIndex = 0
	}
	return pos, nil
}

// SetReaderPosition saves the reader position for a book.
func (s *Store) SetReaderPosition(ctx context.Context, bookID string, pos ReaderPosition) error {
	if pos.PageIndex < 0 {
		return fmt.Errorf("page index must not be negative, got %d", pos.PageIndex)
	}

	key := buildKey(readerPositionPrefix, bookID)
	defer releaseKey(key)

	err := s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(pos)
		if err != nil {
			return fmt.Errorf("marshal reader position: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("set reader position: %w", err)
	}
	return nil
}

// DeleteReaderPosition removes the saved position for a book.
func (s *Store) DeleteReaderPosition(ctx context.Context, bookID string) error {
	key := buildKey(readerPositionPrefix, bookID)
	defer releaseKey(key)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete reader position: %w", err)
	}
	return nil
}
