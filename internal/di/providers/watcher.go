package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/logger"
	"github.com/heysmata/strava-for-books/internal/watcher"
)

// InboxWatcherHandle wraps the import inbox watcher with lifecycle management.
// Watcher is nil when no inbox is configured or the importer is unavailable.
type InboxWatcherHandle struct {
	Watcher *watcher.InboxWatcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *InboxWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideInboxWatcher provides the import inbox folder watcher.
func ProvideInboxWatcher(i do.Injector) (*InboxWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	importHandle := do.MustInvoke[*ImportServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Import.InboxPath == "" {
		return &InboxWatcherHandle{}, nil
	}
	if importHandle.Service == nil {
		log.Warn("Import inbox configured but PDF import is unavailable, not watching",
			"path", cfg.Import.InboxPath)
		return &InboxWatcherHandle{}, nil
	}

	w, err := watcher.NewInboxWatcher(cfg.Import.InboxPath, importHandle.Service, watcher.Options{}, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Start(ctx) }()

	log.Info("Import inbox watcher started", "path", cfg.Import.InboxPath)

	return &InboxWatcherHandle{Watcher: w, cancel: cancel}, nil
}
