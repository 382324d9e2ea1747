// Package ranker implements FastLexRank: posts are scored by how well their
// embedding aligns with the centroid of the whole collection, a linear-time
// stand-in for LexRank's pairwise similarity centrality.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/narratives/internal/embed"
	"github.com/ibeckermayer/narratives/internal/textproc"
	"github.com/ibeckermayer/narratives/internal/types"
)

var (
	// ErrEmbedding wraps failures of the embedding provider.
	ErrEmbedding = errors.New("embedding failed")
	// ErrDimensionMismatch is returned when the provider's vectors do not line
	// up with the input (wrong count, ragged or empty vectors).
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Options tunes batching. Zero values pick the defaults.
type Options struct {
	BatchSize   int
	Concurrency int
	Cleaner     textproc.Cleaner
	Logger      logrus.FieldLogger
}

// Ranker scores posts with FastLexRank using an injected embedding provider
type Ranker struct {
	provider    embed.Provider
	cleaner     textproc.Cleaner
	batchSize   int
	concurrency int
	log         logrus.FieldLogger
}

// New creates a ranker backed by provider
func New(provider embed.Provider, opts Options) *Ranker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Cleaner == nil {
		opts.Cleaner = textproc.Default
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}
	return &Ranker{
		provider:    provider,
		cleaner:     opts.Cleaner,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}
}

// Rank returns every input post exactly once, ordered by descending score.
// Exact ties keep their input order. An empty input returns an empty result
// without calling the provider.
func (r *Ranker) Rank(ctx context.Context, posts []types.Post) ([]types.ScoredPost, error) {
	if len(posts) == 0 {
		return []types.ScoredPost{}, nil
	}

	vectors, err := r.Embeddings(ctx, posts)
	if err != nil {
		return nil, err
	}

	scores := Score(vectors)
	ranked := make([]types.ScoredPost, len(posts))
	for i, p := range posts {
		ranked[i] = types.ScoredPost{Post: p, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	r.log.WithFields(logrus.Fields{
		"posts": len(posts),
		"model": r.provider.Model(),
	}).Debug("Ranked posts")

	return ranked, nil
}

// Embeddings cleans and embeds the text of each post, in input order.
func (r *Ranker) Embeddings(ctx context.Context, posts []types.Post) ([][]float64, error) {
	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = r.cleaner.Clean(p.Text)
	}
	return r.EmbedAll(ctx, texts)
}

// Model returns the embedding model name
func (r *Ranker) Model() string {
	return r.provider.Model()
}

// EmbedAll embeds texts in batches, possibly concurrently, and returns the
// vectors as float64 in input order. Every vector must have the same
// non-zero length.
func (r *Ranker) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	numBatches := (len(texts) + r.batchSize - 1) / r.batchSize
	results := make([][][]float32, numBatches)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := 0; i < len(texts); i += r.batchSize {
		batchIdx := i / r.batchSize
		batch := texts[i:min(i+r.batchSize, len(texts))]

		g.Go(func() error {
			vecs, err := r.provider.Embed(ctx, batch)
			if err != nil {
				return fmt.Errorf("%w: batch %d: %w", ErrEmbedding, batchIdx, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: batch %d returned %d vectors for %d texts",
					ErrDimensionMismatch, batchIdx, len(vecs), len(batch))
			}
			results[batchIdx] = vecs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	vectors := make([][]float64, 0, len(texts))
	dim := -1
	for _, batch := range results {
		for _, v := range batch {
			if dim == -1 {
				dim = len(v)
			}
			if len(v) == 0 || len(v) != dim {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
			}
			f := make([]float64, len(v))
			for i, x := range v {
				f[i] = float64(x)
			}
			vectors = append(vectors, f)
		}
	}
	return vectors, nil
}
