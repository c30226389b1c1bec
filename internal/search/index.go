package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// mappingVersion is bumped whenever buildIndexMapping changes shape. A
// mismatch on startup throws the on-disk index away so it gets rebuilt from
// the store.
const mappingVersion = "1"

// SearchIndex wraps a Bleve index over the book catalog. All methods are safe
// for concurrent use; the mutex exists so Rebuild can swap the underlying
// index out from under readers.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // directory holding search.bleve
	Logger   *slog.Logger // optional
}

// NewSearchIndex opens the index at DataPath, creating it when missing. An
// index whose mapping version does not match (or that fails to open) is
// discarded and recreated empty; the caller is expected to reindex from the
// store when the document count comes back zero.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	index, created, err := openOrCreate(indexPath, versionPath, logger)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

func openOrCreate(indexPath, versionPath string, logger *slog.Logger) (bleve.Index, bool, error) {
	stale := false
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index missing version marker, rebuilding",
				"new_version", mappingVersion)
			stale = true
		case string(version) != mappingVersion:
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(version), "new_version", mappingVersion)
			stale = true
		}

		if !stale {
			index, openErr := bleve.Open(indexPath)
			if openErr == nil {
				return index, false, nil
			}
			logger.Warn("failed to open search index, recreating",
				"path", indexPath, "error", openErr)
			stale = true
		}
	}

	if stale {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, false, fmt.Errorf("remove stale index: %w", err)
		}
	}

	index, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, false, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0644); err != nil {
		logger.Warn("failed to write search version marker", "error", err)
	}
	return index, true, nil
}

func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument indexes one book document.
func (s *SearchIndex) IndexDocument(doc *BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// ToMap keeps field names aligned with the lowercase mapping.
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes documents in batches of 500, which is much faster
// than one-at-a-time indexing during a full reindex.
func (s *SearchIndex) IndexDocuments(docs []*BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteDocument removes one book from the index.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DeleteDocuments removes a batch of books from the index.
func (s *SearchIndex) DeleteDocuments(ids []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed books.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the on-disk index and creates a fresh empty one. It holds the
// write lock for the duration, so searches block until it finishes.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
