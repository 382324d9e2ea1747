package providers

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashingDimensions is the vector size of the hashing embedder.
const DefaultHashingDimensions = 384

// HashingEmbedder is an offline, deterministic embedder: lower-cased word
// unigrams and bigrams are hashed into a fixed number of buckets, with a
// second hash choosing the sign. It has no notion of meaning, but similar
// wording lands on similar vectors, which is enough for dry runs and tests.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder creates a hashing embedder with the given dimension.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Model returns a descriptive model name
func (e *HashingEmbedder) Model() string { return "hashing" }

// Embed hashes each text independently.
func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *HashingEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, w := range words {
		e.add(vec, w)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w)
		}
	}
	return vec
}

func (e *HashingEmbedder) add(vec []float32, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dimensions))
	if (sum>>63)&1 == 1 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}
