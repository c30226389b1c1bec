package providers

import (
	"github.com/samber/do/v2"

	"github.com/heysmata/strava-for-books/internal/ai"
	"github.com/heysmata/strava-for-books/internal/chat"
	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/docimport"
	"github.com/heysmata/strava-for-books/internal/illustration"
	"github.com/heysmata/strava-for-books/internal/logger"
	"github.com/heysmata/strava-for-books/internal/media/covers"
	"github.com/heysmata/strava-for-books/internal/service"
	"github.com/heysmata/strava-for-books/internal/speech"
)

// metadataProvider returns the AI client as a metadata provider, or nil when
// the backend is not configured. A nil interface keeps the services'
// unavailable paths honest.
func metadataProvider(client *ai.Client) service.MetadataProvider {
	if client.Enabled() {
		return client
	}
	return nil
}

// ProvideLibraryService provides the catalog and goal service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	aiClient := do.MustInvoke[*ai.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(storeHandle.Store, indexHandle.SearchIndex, metadataProvider(aiClient), log.Logger), nil
}

// ReaderServiceHandle wraps the reader service with shutdown capability so
// the narration controller goroutine stops cleanly.
type ReaderServiceHandle struct {
	*service.ReaderService
}

// Shutdown implements do.Shutdownable.
func (h *ReaderServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideReaderService provides the immersive reader service with its paced
// narration engine and illustration generator.
func ProvideReaderService(i do.Injector) (*ReaderServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	storages := do.MustInvoke[*ImageStorages](i)
	aiClient := do.MustInvoke[*ai.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	engine := speech.NewPacedEngine(cfg.Reader.NarrationWPM)
	generator := illustration.NewGenerator(aiClient, storages.Illustrations, sseHandle.Manager, log.Logger)

	// Illustrations only default on when the backend can actually
	// generate them.
	illustrationsDefault := cfg.Illustrations.Enabled && aiClient.Enabled()

	svc := service.NewReaderService(
		storeHandle.Store,
		generator,
		engine,
		sseHandle.Manager,
		cfg.Reader.PageSize,
		illustrationsDefault,
		log.Logger,
	)

	// Content edits and deletions must tear down a stale reader session.
	library := do.MustInvoke[*service.LibraryService](i)
	library.SetSessionInvalidator(svc)

	return &ReaderServiceHandle{ReaderService: svc}, nil
}

// ProvideChatService provides the book chat companion service.
func ProvideChatService(i do.Injector) (*service.ChatService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	aiClient := do.MustInvoke[*ai.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	var replier chat.Replier
	if aiClient.Enabled() {
		replier = aiClient
	}

	return service.NewChatService(storeHandle.Store, replier, sseHandle.Manager, log.Logger), nil
}

// ImportServiceHandle wraps the import service. Service is nil when the
// poppler tools are not installed; the rest of the server works without it.
type ImportServiceHandle struct {
	Service *service.ImportService
}

// ProvideImportService provides the document import service.
func ProvideImportService(i do.Injector) (*ImportServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	storages := do.MustInvoke[*ImageStorages](i)
	aiClient := do.MustInvoke[*ai.Client](i)
	library := do.MustInvoke[*service.LibraryService](i)
	log := do.MustInvoke[*logger.Logger](i)

	extractor, err := docimport.NewPopplerExtractor(docimport.PopplerOptions{
		PdftotextPath: cfg.Import.PdftotextPath,
		PdftoppmPath:  cfg.Import.PdftoppmPath,
	}, log.Logger)
	if err != nil {
		log.Warn("PDF import unavailable", "error", err)
		return &ImportServiceHandle{Service: nil}, nil
	}

	importer := docimport.NewImporter(extractor, log.Logger)
	svc := service.NewImportService(library, importer, storages.Covers, metadataProvider(aiClient), sseHandle.Manager, log.Logger)
	svc.SetCoverDownloader(covers.NewDownloader(storages.Covers, log.Logger))

	return &ImportServiceHandle{Service: svc}, nil
}
