package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
)

// New builds the provider named by cfg.Embedding.Provider. The result is not cached;
// wrap it with NewCachedEmbedder where repeated texts are expected. An empty API key
// is passed through and fails as ErrEmbeddingService on the first request.
func New(cfg *config.Config, logger *zap.Logger) (Embedder, error) {
	ec := cfg.Embedding
	switch ec.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			BatchSize:  ec.BatchSize,
			Logger:     logger,
		}), nil
	case config.ProviderONNX:
		e, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  ec.ModelPath,
			Dimensions: ec.Dimensions,
			MaxTokens:  ec.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderHash:
		return NewHashEmbedder(ec.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ec.Provider)
	}
}
