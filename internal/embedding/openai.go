package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// OpenAIBackend implements Backend against the OpenAI embeddings API.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIBackend creates a backend for the given model and output
// dimensions. It requires OPENAI_API_KEY in the environment.
func NewOpenAIBackend(model string, dimensions int) (*OpenAIBackend, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from the environment.
	client := openai.NewClient()

	return &OpenAIBackend{
		client:     &client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed requests embeddings for one batch. Rate limit errors (HTTP 429)
// are returned retryable; any other API error is marked permanent so the
// generator fails fast instead of burning its retry budget.
func (b *OpenAIBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := b.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:      openai.EmbeddingModel(b.model),
		Dimensions: openai.Int(int64(b.dimensions)),
	})
	if err != nil {
		if isRateLimitError(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = toFloat32(data.Embedding)
	}
	return embeddings, nil
}

// isRateLimitError checks for HTTP 429.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the API's float64 vectors to the storage layout.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
