// Package analyzer classifies narrative framing and reply-chain stance with a
// pluggable LLM provider.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/narratives/internal/analyzer/providers"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/store"
	"github.com/ibeckermayer/narratives/internal/types"
)

// Message is one chat turn
type Message = providers.Message

// Provider defines the interface for LLM providers: messages in, text out.
type Provider interface {
	Complete(ctx context.Context, messages []Message, maxTokens int) (string, error)
	Name() string
	Model() string
}

// ExchangeRecorder persists prompt/response pairs for debugging
type ExchangeRecorder interface {
	SaveLLMExchange(exchange store.LLMExchange) (string, error)
}

// NewProvider creates the provider named in cfg. ProviderNone yields nil.
func NewProvider(cfg config.AnalysisConfig) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("missing ANTHROPIC_API_KEY for anthropic analysis")
		}
		return providers.NewAnthropicProvider(apiKey, cfg.APIURL, cfg.Model), nil
	case config.ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for openai analysis")
		}
		return providers.NewOpenAIProvider(apiKey, cfg.APIURL, cfg.Model), nil
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}

// Options configures an Analyzer. Zero values pick the defaults.
type Options struct {
	MaxTokens int
	// BatchSize bounds the number of concurrent provider calls
	BatchSize int
	// StancePrompt overrides the category definitions of the reply-chain prompt
	StancePrompt string
	Exchanges    ExchangeRecorder
	Logger       logrus.FieldLogger
}

// Analyzer handles LLM-based narrative analysis
type Analyzer struct {
	provider     Provider
	maxTokens    int
	batchSize    int
	stancePrompt string
	exchanges    ExchangeRecorder
	log          logrus.FieldLogger
	now          func() time.Time
}

// New creates a new analyzer around provider
func New(provider Provider, opts Options) *Analyzer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 8
	}
	if opts.StancePrompt == "" {
		opts.StancePrompt = DefaultStanceDefinitions
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}
	return &Analyzer{
		provider:     provider,
		maxTokens:    opts.MaxTokens,
		batchSize:    opts.BatchSize,
		stancePrompt: opts.StancePrompt,
		exchanges:    opts.Exchanges,
		log:          opts.Logger,
		now:          time.Now,
	}
}

// Tasks label recorded exchanges
const (
	TaskClassify   = "classify"
	TaskReplyChain = "reply_chain"
)

// complete runs one prompt and records the exchange when a recorder is set
func (a *Analyzer) complete(ctx context.Context, task, prompt string) (string, error) {
	messages := []Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: prompt},
	}
	start := a.now()
	response, err := a.provider.Complete(ctx, messages, a.maxTokens)

	if a.exchanges != nil {
		ex := store.LLMExchange{
			Timestamp: start,
			Elapsed:   a.now().Sub(start),
			Provider:  a.provider.Name(),
			Model:     a.provider.Model(),
			Task:      task,
			Prompt:    prompt,
			Response:  response,
		}
		if err != nil {
			ex.Error = err.Error()
		}
		if path, cerr := a.exchanges.SaveLLMExchange(ex); cerr != nil {
			a.log.WithError(cerr).Warn("Failed to cache LLM exchange")
		} else {
			a.log.WithField("path", path).Debug("Cached LLM exchange")
		}
	}

	return response, err
}

// forEach runs fn for every index in [0, n) with at most batchSize calls in
// flight. The first error cancels the rest.
func (a *Analyzer) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.batchSize)
	for i := range n {
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
