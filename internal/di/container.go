// Package di provides dependency injection configuration for the BookWyrm server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/heysmata/strava-for-books/internal/ai"
	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/di/providers"
	"github.com/heysmata/strava-for-books/internal/logger"
	"github.com/heysmata/strava-for-books/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Storage layer
	do.Provide(injector, providers.ProvideImageStorages)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// AI backend
	do.Provide(injector, providers.ProvideAIClient)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideReaderService)
	do.Provide(injector, providers.ProvideChatService)
	do.Provide(injector, providers.ProvideImportService)

	// Workers
	do.Provide(injector, providers.ProvideInboxWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.ImageStorages](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*ai.Client](injector)

	// Business services
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*providers.ReaderServiceHandle](injector)
	_ = do.MustInvoke[*service.ChatService](injector)
	_ = do.MustInvoke[*providers.ImportServiceHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.InboxWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	// Backfill search if the index is missing or stale
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
