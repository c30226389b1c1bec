package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/heysmata/strava-for-books/internal/domain"
)

// EventEmitter receives change notifications from the store. The SSE manager
// implements it; tests use NewNoopEmitter.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

func (NoopEmitter) Emit(_ any) {}

func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer keeps the search index in step with catalog writes. Updates
// run asynchronously so indexing never blocks a store operation.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer discards all index updates.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// Store is the badger-backed persistence layer for books, the reading goal,
// and saved reader positions.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	eventEmitter EventEmitter

	// Set via SetSearchIndexer after construction; store must exist before
	// the search adapter can be built.
	searchIndexer SearchIndexer
}

// New opens (or creates) the badger database at path. The emitter is
// required; pass NewNoopEmitter in tests.
func New(path string, logger *slog.Logger, emitter EventEmitter) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true // survive crashes without losing acknowledged writes
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:           db,
		logger:       logger,
		eventEmitter: emitter,
	}

	if logger != nil {
		logger.Info("database opened", "path", path)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing database")
	}
	return s.db.Close()
}

// SetSearchIndexer wires the search adapter in after construction.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// exists reports whether a key is present without reading its value.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
