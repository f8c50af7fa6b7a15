// Package search answers similarity and hybrid queries against the chunk
// store, fusing vector similarity with lexical scoring when asked to.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hagwonlab/studyindex/internal/storage"
)

const (
	// DefaultThreshold is the minimum similarity when the caller does not
	// set one.
	DefaultThreshold = 0.7

	// MinThreshold is the floor enforced regardless of caller override,
	// preventing unbounded full scans.
	MinThreshold = 0.05

	// DefaultTopK is the result count when the caller does not set one.
	DefaultTopK = 10

	// DefaultVectorWeight balances vector similarity against keyword
	// score in hybrid mode.
	DefaultVectorWeight = 0.7

	// MaxQueryRunes bounds query length; longer queries are rejected
	// before any processing.
	MaxQueryRunes = 8192

	// DefaultTimeout bounds a search on the interactive path.
	DefaultTimeout = 5 * time.Second

	// candidateFactor over-fetches candidates in hybrid mode so keyword
	// scoring has room to reorder beyond the final topK.
	candidateFactor = 3
)

var (
	ErrEmptyQuery   = errors.New("empty search query")
	ErrQueryTooLong = errors.New("query exceeds size limit")
)

// Embedder turns query text into a vector comparable with the index.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Options control a single search call. Zero values mean defaults.
type Options struct {
	TopK          int
	Threshold     float64 // 0 means DefaultThreshold; clamped to MinThreshold
	Filters       storage.Filters
	UseHybrid     bool
	VectorWeight  float64 // 0 means DefaultVectorWeight; clamped to [0,1]
	IncludePublic bool
}

// Result is one ranked chunk. KeywordScore and CombinedScore are set only
// in hybrid mode.
type Result struct {
	ChunkID       string                `json:"chunk_id"`
	DocumentID    string                `json:"document_id"`
	ChunkIndex    int                   `json:"chunk_index"`
	Content       string                `json:"content"`
	Metadata      storage.ChunkMetadata `json:"metadata"`
	Similarity    float64               `json:"similarity"`
	KeywordScore  float64               `json:"keyword_score,omitempty"`
	CombinedScore float64               `json:"combined_score,omitempty"`
}

// Response wraps the ranked results with query diagnostics.
type Response struct {
	Results               []Result `json:"results"`
	SearchTimeMs          int64    `json:"search_time_ms"`
	TotalChunksConsidered int      `json:"total_chunks_considered"`
}

// Config tunes engine behavior beyond per-call options.
type Config struct {
	// Timeout bounds each search; zero means DefaultTimeout.
	Timeout time.Duration

	// KeywordFallback degrades to keyword-only scoring when query
	// embedding fails, instead of surfacing the error.
	KeywordFallback bool
}

// Engine embeds queries and ranks chunk candidates.
type Engine struct {
	index    storage.Index
	embedder Embedder
	cfg      Config
	logger   *slog.Logger
}

// NewEngine creates a search engine. A nil logger falls back to
// slog.Default().
func NewEngine(index storage.Index, embedder Embedder, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{index: index, embedder: embedder, cfg: cfg, logger: logger}
}

// Search embeds the query, retrieves tenant-scoped candidates, optionally
// fuses keyword scoring, and returns a deterministically ordered ranking.
func (e *Engine) Search(ctx context.Context, query, tenantID string, opts Options) (*Response, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > MaxQueryRunes {
		return nil, fmt.Errorf("%w: %d runes, max %d", ErrQueryTooLong, utf8.RuneCountInString(query), MaxQueryRunes)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > storage.MaxTopK {
		topK = storage.MaxTopK
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < MinThreshold {
		threshold = MinThreshold
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if !e.cfg.KeywordFallback {
			return nil, err
		}
		e.logger.Warn("query embedding failed, degrading to keyword-only scoring", "error", err)
		return e.keywordOnly(ctx, query, tenantID, opts, topK, start)
	}

	fetch := topK
	if opts.UseHybrid {
		fetch = min(topK*candidateFactor, storage.MaxTopK)
	}

	qr, err := e.index.QuerySimilar(ctx, storage.Query{
		Vector:        vector,
		TenantID:      tenantID,
		IncludePublic: opts.IncludePublic,
		TopK:          fetch,
		Threshold:     threshold,
		Filters:       opts.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	var results []Result
	if opts.UseHybrid {
		results = fuse(query, qr.Chunks, opts.VectorWeight)
	} else {
		results = make([]Result, 0, len(qr.Chunks))
		for _, sc := range qr.Chunks {
			results = append(results, fromScored(sc))
		}
	}
	if len(results) > topK {
		results = results[:topK]
	}

	return &Response{
		Results:               results,
		SearchTimeMs:          time.Since(start).Milliseconds(),
		TotalChunksConsidered: qr.Considered,
	}, nil
}

// fuse combines vector similarity with normalized BM25 keyword scores and
// re-sorts: combined descending, then similarity descending, then chunk
// index ascending, then document ID. Fully deterministic for identical
// inputs.
func fuse(query string, candidates []*storage.ScoredChunk, vectorWeight float64) []Result {
	w := vectorWeight
	if w == 0 {
		w = DefaultVectorWeight
	}
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	texts := make([]string, len(candidates))
	for i, sc := range candidates {
		texts[i] = sc.Chunk.Content
	}
	kw := keywordScores(query, texts)

	results := make([]Result, 0, len(candidates))
	for i, sc := range candidates {
		r := fromScored(sc)
		r.KeywordScore = kw[i]
		r.CombinedScore = w*sc.Similarity + (1-w)*kw[i]
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.DocumentID < b.DocumentID
	})
	return results
}

// keywordOnly ranks the filtered candidate set purely by BM25. Used only
// when KeywordFallback is configured and query embedding failed.
func (e *Engine) keywordOnly(ctx context.Context, query, tenantID string, opts Options, topK int, start time.Time) (*Response, error) {
	chunks, err := e.index.ListChunks(ctx, storage.Scope{
		TenantID:      tenantID,
		IncludePublic: opts.IncludePublic,
		Filters:       opts.Filters,
		Limit:         storage.MaxTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("candidate scan: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	kw := keywordScores(query, texts)

	results := make([]Result, 0, len(chunks))
	for i, c := range chunks {
		results = append(results, Result{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			ChunkIndex:    c.ChunkIndex,
			Content:       c.Content,
			Metadata:      c.Metadata,
			KeywordScore:  kw[i],
			CombinedScore: kw[i],
		})
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.DocumentID < b.DocumentID
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return &Response{
		Results:               results,
		SearchTimeMs:          time.Since(start).Milliseconds(),
		TotalChunksConsidered: len(chunks),
	}, nil
}

func fromScored(sc *storage.ScoredChunk) Result {
	return Result{
		ChunkID:    sc.Chunk.ID,
		DocumentID: sc.Chunk.DocumentID,
		ChunkIndex: sc.Chunk.ChunkIndex,
		Content:    sc.Chunk.Content,
		Metadata:   sc.Chunk.Metadata,
		Similarity: sc.Similarity,
	}
}
