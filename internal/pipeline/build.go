package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/narratives/internal/analyzer"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/embed"
	"github.com/ibeckermayer/narratives/internal/notifier"
	"github.com/ibeckermayer/narratives/internal/ranker"
	"github.com/ibeckermayer/narratives/internal/store"
	"github.com/ibeckermayer/narratives/internal/textproc"
)

// FromConfig assembles a pipeline from cfg: the configured embedding and LLM
// providers, the language detector, the sqlite store, the step cache and
// the report notifier.
func FromConfig(cfg *config.Config, log logrus.FieldLogger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	embedder, err := embed.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	opts := Options{
		Config: cfg,
		Ranker: ranker.New(embedder, ranker.Options{
			BatchSize:   cfg.Ranking.BatchSize,
			Concurrency: cfg.Ranking.Concurrency,
			Logger:      log,
		}),
		Logger: log,
	}

	if cfg.Output.CacheSteps || cfg.Analysis.CacheExchange {
		c, err := store.DefaultCache()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache dir: %w", err)
		}
		opts.Cache = &c
	}

	llm, err := analyzer.NewProvider(cfg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	if llm != nil {
		aopts := analyzer.Options{
			MaxTokens:    cfg.Analysis.MaxTokens,
			BatchSize:    cfg.Analysis.BatchSize,
			StancePrompt: cfg.Analysis.StancePrompt,
			Logger:       log,
		}
		if cfg.Analysis.CacheExchange && opts.Cache != nil {
			aopts.Exchanges = *opts.Cache
		}
		opts.Analyzer = analyzer.New(llm, aopts)
	}

	if cfg.Input.Language != "" {
		opts.Detector = textproc.NewLinguaDetector()
	}

	opts.Notifier, err = notifier.NewFromConfig(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	if cfg.Output.Database != "" {
		s, err := store.New(cfg.Output.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		opts.Store = s
	}

	return New(opts)
}
