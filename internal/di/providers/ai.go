package providers

import (
	"github.com/samber/do/v2"

	"github.com/heysmata/strava-for-books/internal/ai"
	"github.com/heysmata/strava-for-books/internal/config"
	"github.com/heysmata/strava-for-books/internal/logger"
)

// ProvideAIClient provides the generative backend client. The client is
// always constructed; without an API key it reports disabled and every
// assisted feature degrades to unavailable.
func ProvideAIClient(i do.Injector) (*ai.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := ai.New(cfg.AI, log.Logger)

	if client.Enabled() {
		log.Info("AI backend configured",
			"text_model", cfg.AI.TextModel,
			"image_model", cfg.AI.ImageModel,
		)
	} else {
		log.Info("AI backend not configured - assisted features disabled")
	}

	return client, nil
}
