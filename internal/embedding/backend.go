// Package embedding converts chunk and query text into fixed-dimension
// vectors through a batched, retrying generator.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

var ErrBackendUnavailable = errors.New("embedding backend unavailable")

// Backend is the narrow capability an embedding vendor must provide:
// a batch of strings in, an equal-length batch of vectors out. It may
// fail per call. Retry, batching, and concurrency live in Generator.
type Backend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config describes the embedding model in use. Query vectors must be
// produced with the same ModelID and Dimensions as the index they are
// compared against.
type Config struct {
	ModelID    string
	Dimensions int
	BatchSize  int
}

// Validate fills defaults and rejects unusable values.
func (c *Config) Validate() error {
	if c.ModelID == "" {
		c.ModelID = DefaultModel
	}
	if c.Dimensions == 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.Dimensions < 0 {
		return fmt.Errorf("invalid embedding config: dimensions must be positive, got %d", c.Dimensions)
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("invalid embedding config: batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}
