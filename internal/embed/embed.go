// Package embed defines the embedding provider used by the ranker and the
// cross-platform linker.
package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/embed/providers"
)

// Provider maps texts to fixed-length vectors. Implementations must return
// one vector per input, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// New creates the embedding provider named in cfg.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case config.EmbeddingOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for openai embeddings")
		}
		return providers.NewOpenAIEmbedder(apiKey, cfg.APIURL, cfg.Model, cfg.Dimensions), nil
	case config.EmbeddingOllama:
		return providers.NewOllamaEmbedder(cfg.APIURL, cfg.Model), nil
	case config.EmbeddingHashing:
		return providers.NewHashingEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
