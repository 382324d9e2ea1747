package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no embedding model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder generates embeddings with the OpenAI embeddings API
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates a new OpenAI embedder. baseURL may be empty, or
// point at an OpenAI-compatible server.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := openai.NewClient(opts...)
	return &OpenAIEmbedder{
		client:     &client,
		model:      model,
		dimensions: dimensions,
	}
}

// Model returns the embedding model name
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed sends one request for the whole batch
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI embeddings API: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// The API tags each vector with its input index; place them accordingly.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(texts) {
			return nil, fmt.Errorf("OpenAI returned out-of-range embedding index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
