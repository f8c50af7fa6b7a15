package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions is the vector size for DefaultModel.
	DefaultDimensions = 1536

	// DefaultBatchSize balances requests-per-minute against
	// tokens-per-minute rate limits.
	DefaultBatchSize = 100

	// DefaultMaxInFlight bounds concurrent batch calls to the backend.
	// Excess batches queue rather than fail.
	DefaultMaxInFlight = 4

	// DefaultBatchTimeout bounds a single batch round trip, including
	// its retries.
	DefaultBatchTimeout = 30 * time.Second

	// maxBatchRetries bounds retry attempts per batch.
	maxBatchRetries = 3
)

// Generator produces embeddings through a Backend, batching requests,
// bounding concurrency, and retrying failed batches with exponential
// backoff. A call either embeds every input or fails as a whole; it never
// returns a partially embedded set.
type Generator struct {
	backend      Backend
	cfg          Config
	maxInFlight  int
	batchTimeout time.Duration
	logger       *slog.Logger
}

// NewGenerator creates a Generator. A nil logger falls back to
// slog.Default().
func NewGenerator(backend Backend, cfg Config, logger *slog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		backend:      backend,
		cfg:          cfg,
		maxInFlight:  DefaultMaxInFlight,
		batchTimeout: DefaultBatchTimeout,
		logger:       logger,
	}, nil
}

// Config returns the model configuration in effect.
func (g *Generator) Config() Config { return g.cfg }

// Dimensions returns the vector size every embedding will have.
func (g *Generator) Dimensions() int { return g.cfg.Dimensions }

// EmbedBatch embeds texts one-to-one, order-preserving. Batches run with
// at most DefaultMaxInFlight in flight; each failed batch is retried up
// to maxBatchRetries times, after which the whole call fails.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return g.EmbedBatchFunc(ctx, texts, nil)
}

// EmbedBatchFunc is EmbedBatch with a progress callback: onProgress
// receives the cumulative number of embedded texts after each completed
// batch. Callbacks are serialized.
func (g *Generator) EmbedBatchFunc(ctx context.Context, texts []string, onProgress func(completed int)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))

	var mu sync.Mutex
	completed := 0

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(g.maxInFlight)

	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := min(start+g.cfg.BatchSize, len(texts))
		grp.Go(func() error {
			vectors, err := g.embedWithRetry(grpCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: batch %d-%d of %d texts: %w",
					ErrBackendUnavailable, start, end, len(texts), err)
			}
			copy(results[start:end], vectors)
			if onProgress != nil {
				mu.Lock()
				completed += end - start
				onProgress(completed)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EmbedQuery embeds a single query string with the same model and
// dimensions as the index, so query and chunk vectors stay comparable.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %w", ErrBackendUnavailable, err)
	}
	return vectors[0], nil
}

// embedWithRetry calls the backend for one batch under the batch timeout,
// retrying retryable failures with exponential backoff. It validates that
// the backend honored the one-to-one contract and the configured
// dimensions.
func (g *Generator) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.batchTimeout)
	defer cancel()

	var vectors [][]float32
	attempt := 0

	operation := func() error {
		attempt++
		out, err := g.backend.Embed(ctx, texts)
		if err != nil {
			g.logger.Warn("embedding batch failed",
				"attempt", attempt, "size", len(texts), "error", err)
			return err
		}
		if len(out) != len(texts) {
			return backoff.Permanent(fmt.Errorf(
				"backend returned %d vectors for %d texts", len(out), len(texts)))
		}
		for i, v := range out {
			if len(v) != g.cfg.Dimensions {
				return backoff.Permanent(fmt.Errorf(
					"vector %d has %d dimensions, expected %d", i, len(v), g.cfg.Dimensions))
			}
		}
		vectors = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(b, maxBatchRetries), ctx))
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
