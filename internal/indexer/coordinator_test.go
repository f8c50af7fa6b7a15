package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagwonlab/studyindex/internal/embedding"
	"github.com/hagwonlab/studyindex/internal/splitter"
	"github.com/hagwonlab/studyindex/internal/storage"
)

const testDims = 4

// stubBackend embeds everything as a fixed unit vector. It can fail
// permanently or block until released, to drive the pipeline into error
// and cancellation paths.
type stubBackend struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	block   chan struct{} // when set, Embed waits for close or ctx
}

func (s *stubBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	fail := s.fail
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, backoff.Permanent(errors.New("embedding backend rejected the batch"))
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, testDims)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (s *stubBackend) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func newTestCoordinator(t *testing.T, backend embedding.Backend) (*Coordinator, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory(testDims)
	gen, err := embedding.NewGenerator(backend, embedding.Config{
		Dimensions: testDims,
		BatchSize:  10,
	}, nil)
	require.NoError(t, err)

	coord, err := NewCoordinator(store, gen, splitter.Config{
		MaxTokens:          50,
		OverlapTokens:      0,
		PreserveParagraphs: true,
	}, nil)
	require.NoError(t, err)
	return coord, store
}

func multiChunkText(paragraphs int) string {
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = strings.Repeat(fmt.Sprintf("paragraph%d content ", i), 15)
	}
	return strings.Join(parts, "\n\n")
}

func TestIndexDocument_Completes(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubBackend{})
	ctx := context.Background()

	meta := DocumentMeta{
		Filename: "algebra.pdf",
		Subject:  "math",
		Grade:    "9",
		Type:     "textbook",
		Year:     2024,
		Tags:     []string{"algebra"},
	}
	progress, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(4), "tenant-a", meta)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", progress.DocumentID)
	assert.False(t, progress.Status.Terminal())

	final, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.ProgressPercent)
	assert.Greater(t, final.TotalChunks, 1)
	assert.Equal(t, final.TotalChunks, final.ProcessedChunks)
	assert.NotNil(t, final.CompletedAt)
	assert.Empty(t, final.Error)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusReady, doc.Status)
	assert.Equal(t, "tenant-a", doc.TenantID)
	assert.Equal(t, "math", doc.Subject)

	stats, err := store.Stats(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, final.TotalChunks, stats.Chunks)
}

func TestIndexDocument_ChunkFields(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubBackend{})
	ctx := context.Background()

	meta := DocumentMeta{Tags: []string{"geometry"}}
	_, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(3), "tenant-a", meta)
	require.NoError(t, err)
	_, err = coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)

	v := make([]float32, testDims)
	v[0] = 1
	result, err := store.QuerySimilar(ctx, storage.Query{
		Vector: v, TenantID: "tenant-a", TopK: 50, Threshold: 0.5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	indexes := map[int]bool{}
	for _, sc := range result.Chunks {
		c := sc.Chunk
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, "tenant-a", c.TenantID)
		assert.Greater(t, c.TokenCount, 0)
		assert.Equal(t, []string{"geometry"}, c.Metadata.Tags)
		assert.False(t, indexes[c.ChunkIndex], "duplicate chunk index %d", c.ChunkIndex)
		indexes[c.ChunkIndex] = true
	}
	// Chunk indexes are dense, 0..n-1.
	for i := 0; i < len(result.Chunks); i++ {
		assert.True(t, indexes[i], "missing chunk index %d", i)
	}
}

func TestIndexDocument_StructuralMetadata(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubBackend{})
	ctx := context.Background()

	text := "문제 1 다음 식을 계산하시오.\n\n문제 2 방정식을 풀으시오."
	override := &splitter.Config{MaxTokens: 20, SplitByProblems: true}
	_, err := coord.IndexDocument(ctx, "exam-1", text, "", DocumentMeta{Chunking: override})
	require.NoError(t, err)
	final, err := coord.WaitForCompletion(ctx, "exam-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, final.Status)

	v := make([]float32, testDims)
	v[0] = 1
	result, err := store.QuerySimilar(ctx, storage.Query{
		Vector: v, IncludePublic: true, TopK: 50, Threshold: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)

	var numbers []string
	for _, sc := range result.Chunks {
		numbers = append(numbers, sc.Chunk.Metadata.ProblemNumber)
	}
	assert.ElementsMatch(t, []string{"1", "2"}, numbers)
}

func TestIndexDocument_ReindexSupersedes(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubBackend{})
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(5), "", DocumentMeta{})
	require.NoError(t, err)
	first, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, first.Status)

	_, err = coord.IndexDocument(ctx, "doc-1", "a single tiny document", "", DocumentMeta{})
	require.NoError(t, err)
	second, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, 1, second.TotalChunks)

	stats, err := store.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks, "old chunks must not survive a reindex")
}

func TestIndexDocument_Idempotent(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubBackend{})
	ctx := context.Background()
	text := multiChunkText(4)

	contents := func() []string {
		v := make([]float32, testDims)
		v[0] = 1
		result, err := store.QuerySimilar(ctx, storage.Query{
			Vector: v, IncludePublic: true, TopK: 50, Threshold: 0.5,
		})
		require.NoError(t, err)
		out := make([]string, len(result.Chunks))
		for i, sc := range result.Chunks {
			out[i] = sc.Chunk.Content
		}
		return out
	}

	_, err := coord.IndexDocument(ctx, "doc-1", text, "", DocumentMeta{})
	require.NoError(t, err)
	_, err = coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	first := contents()

	_, err = coord.IndexDocument(ctx, "doc-1", text, "", DocumentMeta{})
	require.NoError(t, err)
	_, err = coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)

	// Same text, same config: identical chunk set, no accumulation.
	assert.Equal(t, first, contents())
}

func TestIndexDocument_AlreadyIndexing(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{})}
	coord, _ := newTestCoordinator(t, backend)
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(2), "", DocumentMeta{})
	require.NoError(t, err)

	_, err = coord.IndexDocument(ctx, "doc-1", "other text", "", DocumentMeta{})
	assert.ErrorIs(t, err, ErrAlreadyIndexing)

	// A different document is unaffected.
	close(backend.block)
	_, err = coord.IndexDocument(ctx, "doc-2", "small text", "", DocumentMeta{})
	require.NoError(t, err)

	for _, id := range []string{"doc-1", "doc-2"} {
		final, err := coord.WaitForCompletion(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, final.Status, id)
	}
}

func TestIndexDocument_FailurePreservesPriorChunks(t *testing.T) {
	backend := &stubBackend{}
	coord, store := newTestCoordinator(t, backend)
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(3), "", DocumentMeta{})
	require.NoError(t, err)
	first, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, first.Status)

	backend.setFail(true)
	_, err = coord.IndexDocument(ctx, "doc-1", multiChunkText(6), "", DocumentMeta{})
	require.NoError(t, err)
	second, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, second.Status)
	assert.NotEmpty(t, second.Error)

	// Prior chunk set stays searchable; the catalog records the failure.
	stats, err := store.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.TotalChunks, stats.Chunks)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusError, doc.Status)
}

func TestIndexDocument_RetryAfterFailure(t *testing.T) {
	backend := &stubBackend{fail: true}
	coord, store := newTestCoordinator(t, backend)
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(2), "", DocumentMeta{})
	require.NoError(t, err)
	failed, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, StatusError, failed.Status)

	// Terminal jobs can be restarted.
	backend.setFail(false)
	_, err = coord.IndexDocument(ctx, "doc-1", multiChunkText(2), "", DocumentMeta{})
	require.NoError(t, err)
	final, err := coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, storage.StatusReady, doc.Status)
}

func TestDeleteDocument_CancelsInFlightJob(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{})}
	coord, store := newTestCoordinator(t, backend)
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", multiChunkText(2), "tenant-a", DocumentMeta{})
	require.NoError(t, err)

	// Give the job time to reach the embedding stage, then delete.
	deadline := time.After(2 * time.Second)
	for {
		p, err := coord.GetProgress(ctx, "doc-1")
		require.NoError(t, err)
		if p.Status == StatusEmbedding {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached embedding, status %s", p.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}

	require.NoError(t, coord.DeleteDocument(ctx, "doc-1"))

	p, err := coord.GetProgress(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, p.Status)

	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestDeleteDocument_NoJob(t *testing.T) {
	coord, store := newTestCoordinator(t, &stubBackend{})
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", "tiny document", "", DocumentMeta{})
	require.NoError(t, err)
	_, err = coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)

	require.NoError(t, coord.DeleteDocument(ctx, "doc-1"))
	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)

	// Unknown documents delete cleanly.
	assert.NoError(t, coord.DeleteDocument(ctx, "never-indexed"))
}

func TestGetProgress_UnknownDocument(t *testing.T) {
	coord, _ := newTestCoordinator(t, &stubBackend{})
	_, err := coord.GetProgress(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownDocument)
}

func TestGetProgress_FromCatalogAfterRestart(t *testing.T) {
	backend := &stubBackend{}
	coord, store := newTestCoordinator(t, backend)
	ctx := context.Background()

	_, err := coord.IndexDocument(ctx, "doc-1", "tiny document", "tenant-a", DocumentMeta{})
	require.NoError(t, err)
	_, err = coord.WaitForCompletion(ctx, "doc-1")
	require.NoError(t, err)

	// A fresh coordinator sharing the store has no job state and falls
	// back to the catalog record.
	gen, err := embedding.NewGenerator(backend, embedding.Config{Dimensions: testDims, BatchSize: 10}, nil)
	require.NoError(t, err)
	fresh, err := NewCoordinator(store, gen, splitter.Config{MaxTokens: 50}, nil)
	require.NoError(t, err)

	p, err := fresh.GetProgress(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, 100, p.ProgressPercent)
}

func TestIndexDocument_InvalidChunkingOverride(t *testing.T) {
	coord, _ := newTestCoordinator(t, &stubBackend{})

	bad := &splitter.Config{MaxTokens: 10, OverlapTokens: 20}
	_, err := coord.IndexDocument(context.Background(), "doc-1", "text", "", DocumentMeta{Chunking: bad})
	assert.ErrorIs(t, err, splitter.ErrInvalidConfig)
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		name string
		p    Progress
		want int
	}{
		{"pending", Progress{Status: StatusPending}, 0},
		{"chunking", Progress{Status: StatusChunking}, 5},
		{"embedding start", Progress{Status: StatusEmbedding, TotalChunks: 10}, 10},
		{"embedding halfway", Progress{Status: StatusEmbedding, TotalChunks: 10, ProcessedChunks: 5}, 47},
		{"storing", Progress{Status: StatusStoring, TotalChunks: 10, ProcessedChunks: 10}, 90},
		{"completed", Progress{Status: StatusCompleted, TotalChunks: 10, ProcessedChunks: 10}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.percent())
		})
	}
}
