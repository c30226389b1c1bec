package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysmata/strava-for-books/internal/domain"
)

type recordingHandler struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (h *recordingHandler) ImportFile(_ context.Context, path string) (*domain.Book, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	if h.err != nil {
		return nil, h.err
	}
	return &domain.Book{ID: "book_test", Title: "Test"}, nil
}

func (h *recordingHandler) imported() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func startWatcher(t *testing.T, dir string, handler Handler) *InboxWatcher {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	w, err := NewInboxWatcher(dir, handler, Options{SettleDelay: 25 * time.Millisecond}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	return w
}

func TestInboxWatcher_ImportsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}
	startWatcher(t, dir, handler)

	path := filepath.Join(dir, "dropped.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	require.Eventually(t, func() bool {
		return len(handler.imported()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{path}, handler.imported())

	// Consumed on success.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInboxWatcher_PicksUpExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "already-there.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	handler := &recordingHandler{}
	startWatcher(t, dir, handler)

	require.Eventually(t, func() bool {
		return len(handler.imported()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{path}, handler.imported())
}

func TestInboxWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}
	startWatcher(t, dir, handler)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.pdf"), []byte("%PDF"), 0o644))

	require.Eventually(t, func() bool {
		return len(handler.imported()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{filepath.Join(dir, "real.pdf")}, handler.imported())
}

func TestInboxWatcher_KeepsFileOnImportFailure(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{err: os.ErrInvalid}
	startWatcher(t, dir, handler)

	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	require.Eventually(t, func() bool {
		return len(handler.imported()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Failed imports stay in place for inspection.
	time.Sleep(50 * time.Millisecond)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestInboxWatcher_SettleRestartsOnChange(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}
	startWatcher(t, dir, handler)

	path := filepath.Join(dir, "slow-copy.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	// Keep appending while the settle timer is running.
	for range 3 {
		time.Sleep(10 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("more")
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	require.Eventually(t, func() bool {
		return len(handler.imported()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{path}, handler.imported())
}

func TestInboxWatcher_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	handler := &recordingHandler{}

	logger := slog.New(slog.DiscardHandler)
	w, err := NewInboxWatcher(dir, handler, Options{}, logger)
	require.NoError(t, err)
	defer w.Stop()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
