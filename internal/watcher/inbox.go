// Package watcher monitors the import inbox folder and feeds dropped
// documents to the import pipeline once they stop changing on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/heysmata/strava-for-books/internal/docimport"
	"github.com/heysmata/strava-for-books/internal/domain"
)

// Handler receives settled files from the inbox.
type Handler interface {
	ImportFile(ctx context.Context, path string) (*domain.Book, error)
}

// Options configures the inbox watcher behavior.
type Options struct {
	// SettleDelay is how long a file must stay unchanged before it is
	// considered fully written. Partial copies keep resetting the timer.
	SettleDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
}

// InboxWatcher watches a single folder for dropped documents. Files are
// debounced until their size and mtime stop changing, then handed to the
// Handler exactly once per drop.
type InboxWatcher struct {
	dir     string
	handler Handler
	opts    Options
	logger  *slog.Logger

	watcher *fsnotify.Watcher

	pending map[string]*pendingFile
	mu      sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// pendingFile tracks a file that may still be copying in.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// NewInboxWatcher creates a watcher over the given inbox directory. The
// directory is created if it does not exist yet.
func NewInboxWatcher(dir string, handler Handler, opts Options, logger *slog.Logger) (*InboxWatcher, error) {
	opts.setDefaults()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch inbox directory: %w", err)
	}

	return &InboxWatcher{
		dir:     filepath.Clean(dir),
		handler: handler,
		opts:    opts,
		logger:  logger,
		watcher: fsw,
		pending: make(map[string]*pendingFile),
		done:    make(chan struct{}),
	}, nil
}

// Start processes inbox events until the context is cancelled. Files already
// sitting in the inbox at startup are picked up as well.
func (w *InboxWatcher) Start(ctx context.Context) error {
	w.scanExisting()

	w.wg.Add(1)
	go w.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// Stop stops the watcher and cancels all pending settle timers.
func (w *InboxWatcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, pending := range w.pending {
		pending.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// scanExisting queues files already present in the inbox.
func (w *InboxWatcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to scan inbox", "dir", w.dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.startSettling(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *InboxWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", "error", err)
		}
	}
}

func (w *InboxWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancelPending(path)
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.startSettling(path)
	}
}

// cancelPending stops and forgets the settle timer for a removed file.
func (w *InboxWatcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
		delete(w.pending, path)
	}
}

// startSettling begins or restarts the settle timer for a file.
func (w *InboxWatcher) startSettling(path string) {
	if !w.accepts(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	pending := &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.checkSettled(path)
	})

	w.pending[path] = pending
}

// checkSettled fires when the settle timer expires. If the file changed in
// the meantime the timer restarts, otherwise the file goes to the handler.
func (w *InboxWatcher) checkSettled(path string) {
	w.mu.Lock()

	pending, exists := w.pending[path]
	if !exists {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	if info.Size() != pending.size || info.ModTime() != pending.modTime {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	w.dispatch(path)
}

// dispatch imports a settled file and removes it from the inbox on success.
func (w *InboxWatcher) dispatch(path string) {
	select {
	case <-w.done:
		return
	default:
	}

	w.logger.Info("importing file from inbox", "path", path)

	book, err := w.handler.ImportFile(context.Background(), path)
	if err != nil {
		w.logger.Error("inbox import failed", "path", path, "error", err)
		return
	}

	w.logger.Info("inbox import complete", "path", path, "book_id", book.ID, "title", book.Title)

	// Imported files are consumed so a restart does not import them twice.
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to remove imported file", "path", path, "error", err)
	}
}

// accepts reports whether the inbox handles this file type.
func (w *InboxWatcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return docimport.Supported(path)
}
