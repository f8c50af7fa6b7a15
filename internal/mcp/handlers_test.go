package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hagwonlab/studyindex/internal/embedding"
	"github.com/hagwonlab/studyindex/internal/indexer"
	"github.com/hagwonlab/studyindex/internal/search"
	"github.com/hagwonlab/studyindex/internal/splitter"
	"github.com/hagwonlab/studyindex/internal/storage"
)

const testDims = 4

// fixedBackend embeds every text as the same unit vector, so anything
// indexed matches any query with similarity 1.
type fixedBackend struct{}

func (fixedBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, testDims)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewMemory(testDims)
	gen, err := embedding.NewGenerator(fixedBackend{}, embedding.Config{
		Dimensions: testDims,
		BatchSize:  10,
	}, nil)
	require.NoError(t, err)

	chunking := splitter.Config{MaxTokens: 50, PreserveParagraphs: true}
	coordinator, err := indexer.NewCoordinator(store, gen, chunking, nil)
	require.NoError(t, err)

	engine := search.NewEngine(store, gen, search.Config{}, nil)

	return NewServer(&Config{
		Index:       store,
		Coordinator: coordinator,
		Engine:      engine,
		Chunking:    chunking,
	})
}

func indexTestDocument(t *testing.T, s *Server, id, tenant, text string) ProgressOutput {
	t.Helper()
	handler := makeIndexHandler(s.coordinator, splitter.Config{MaxTokens: 50, PreserveParagraphs: true})
	_, out, err := handler(context.Background(), nil, IndexDocumentInput{
		DocumentID: id,
		TenantID:   tenant,
		Text:       text,
		Wait:       true,
	})
	require.NoError(t, err)
	return out
}

func TestIndexHandler_WaitReturnsTerminalProgress(t *testing.T) {
	s := newTestServer(t)

	out := indexTestDocument(t, s, "doc-1", "tenant-a", "some document text to index")
	assert.Equal(t, "doc-1", out.DocumentID)
	assert.Equal(t, "completed", out.Status)
	assert.Equal(t, 100, out.ProgressPercent)
	assert.Equal(t, out.TotalChunks, out.ProcessedChunks)
	assert.NotNil(t, out.CompletedAt)
}

func TestIndexHandler_AsyncReturnsEarlyProgress(t *testing.T) {
	s := newTestServer(t)
	handler := makeIndexHandler(s.coordinator, splitter.Config{MaxTokens: 50})

	_, out, err := handler(context.Background(), nil, IndexDocumentInput{
		DocumentID: "doc-async",
		Text:       "short text",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-async", out.DocumentID)
	assert.NotEmpty(t, out.Status)

	// Let the background job finish before the store goes away.
	_, err = s.coordinator.WaitForCompletion(context.Background(), "doc-async")
	require.NoError(t, err)
}

func TestSearchHandler_FindsIndexedChunks(t *testing.T) {
	s := newTestServer(t)
	indexTestDocument(t, s, "doc-1", "tenant-a", "피타고라스 정리 증명")

	handler := makeSearchHandler(s.engine)
	_, out, err := handler(context.Background(), nil, SearchInput{
		Query:    "피타고라스 정리",
		TenantID: "tenant-a",
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "doc-1", out.Results[0].DocumentID)
	assert.Empty(t, out.Message)
	assert.Equal(t, 1, out.TotalChunksConsidered)
}

func TestSearchHandler_EmptyResultCarriesMessage(t *testing.T) {
	s := newTestServer(t)

	handler := makeSearchHandler(s.engine)
	_, out, err := handler(context.Background(), nil, SearchInput{Query: "anything"})
	require.NoError(t, err)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
}

func TestSearchHandler_InvalidQueryIsAnError(t *testing.T) {
	s := newTestServer(t)

	handler := makeSearchHandler(s.engine)
	_, _, err := handler(context.Background(), nil, SearchInput{Query: "   "})
	assert.Error(t, err)
}

func TestSearchHandler_TenantScoping(t *testing.T) {
	s := newTestServer(t)
	indexTestDocument(t, s, "private", "tenant-a", "tenant a private notes")
	indexTestDocument(t, s, "shared", "", "public reference material")

	handler := makeSearchHandler(s.engine)

	_, out, err := handler(context.Background(), nil, SearchInput{
		Query: "notes", TenantID: "tenant-b", IncludePublic: true,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "shared", out.Results[0].DocumentID)
}

func TestProgressHandler(t *testing.T) {
	s := newTestServer(t)
	indexTestDocument(t, s, "doc-1", "", "document body")

	handler := makeProgressHandler(s.coordinator)
	_, out, err := handler(context.Background(), nil, GetProgressInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "completed", out.Status)

	_, _, err = handler(context.Background(), nil, GetProgressInput{DocumentID: "missing"})
	assert.Error(t, err)
}

func TestDeleteHandler(t *testing.T) {
	s := newTestServer(t)
	indexTestDocument(t, s, "doc-1", "tenant-a", "to be removed")

	handler := makeDeleteHandler(s.coordinator)
	_, out, err := handler(context.Background(), nil, DeleteDocumentInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.Equal(t, "doc-1", out.DocumentID)

	_, err = s.index.GetDocument(context.Background(), "doc-1")
	assert.ErrorIs(t, err, storage.ErrDocumentNotFound)
}

func TestListHandler(t *testing.T) {
	s := newTestServer(t)
	indexTestDocument(t, s, "doc-b", "tenant-a", "second document")
	indexTestDocument(t, s, "doc-a", "tenant-a", "first document")
	indexTestDocument(t, s, "other", "tenant-b", "someone else's document")

	handler := makeListHandler(s.index)
	_, out, err := handler(context.Background(), nil, ListDocumentsInput{TenantID: "tenant-a"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)
	assert.Equal(t, "doc-a", out.Documents[0].DocumentID)
	assert.Equal(t, "doc-b", out.Documents[1].DocumentID)
	assert.Equal(t, "ready", out.Documents[0].Status)
}

func TestStatusHandler(t *testing.T) {
	s := newTestServer(t)
	indexTestDocument(t, s, "doc-1", "tenant-a", "one\n\ntwo\n\nthree")

	handler := makeStatusHandler(s.index)
	_, out, err := handler(context.Background(), nil, StatusInput{TenantID: "tenant-a"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.TotalDocuments)
	assert.Greater(t, out.TotalChunks, 0)
}

func TestHTTPHandler(t *testing.T) {
	s := newTestServer(t)

	h := s.HTTPHandler()
	require.NotNil(t, h)

	// A plain GET carries no MCP session; the handler rejects it rather
	// than opening a stream.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.GreaterOrEqual(t, rec.Code, 400)
}
