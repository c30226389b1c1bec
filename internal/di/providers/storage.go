package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/logger"
	"github.com/heysmata/strava-for-books/internal/media/images"
)

// ImageStorages groups all image storage services.
type ImageStorages struct {
	Covers        *images.Storage
	Illustrations *images.Storage
}

// ProvideImageStorages provides all image storage services.
func ProvideImageStorages(i do.Injector) (*ImageStorages, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	covers, err := images.NewStorage(cfg.Data.BasePath)
	if err != nil {
		return nil, fmt.Errorf("cover storage: %w", err)
	}

	illustrations, err := images.NewIllustrationStorage(cfg.Data.BasePath)
	if err != nil {
		return nil, fmt.Errorf("illustration storage: %w", err)
	}

	log.Info("Image storages initialized")

	return &ImageStorages{
		Covers:        covers,
		Illustrations: illustrations,
	}, nil
}
