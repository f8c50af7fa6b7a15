package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Index using brute-force cosine similarity.
// It is the reference implementation of the store semantics and the
// default backend for tests and single-node deployments.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string]*Document
	chunks    map[string][]*Chunk // documentID -> chunks ordered by ChunkIndex
}

// NewMemory creates an empty in-memory store for vectors of the given
// dimension.
func NewMemory(dimension int) *Memory {
	return &Memory{
		dimension: dimension,
		docs:      make(map[string]*Document),
		chunks:    make(map[string][]*Chunk),
	}
}

// Store fully replaces the chunk set for doc under a single lock, so a
// reader sees either the previous set or the new one.
func (m *Memory) Store(ctx context.Context, doc *Document, chunks []*Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, c := range chunks {
		if len(c.Embedding) != m.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), m.dimension)
		}
	}

	docCopy := *doc
	stored := make([]*Chunk, len(chunks))
	for i, c := range chunks {
		cc := *c
		stored[i] = &cc
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].ChunkIndex < stored[j].ChunkIndex })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = &docCopy
	m.chunks[doc.ID] = stored
	return nil
}

// PutDocument upserts the catalog record, leaving any existing chunk set
// alone.
func (m *Memory) PutDocument(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docCopy := *doc
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = &docCopy
	return nil
}

// QuerySimilar filters by tenant and metadata first, then ranks the
// surviving candidates by cosine similarity.
func (m *Memory) QuerySimilar(ctx context.Context, q Query) (*QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.Vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(q.Vector), m.dimension)
	}

	topK := q.TopK
	if topK <= 0 || topK > MaxTopK {
		topK = MaxTopK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*ScoredChunk
	considered := 0
	for docID, chunks := range m.chunks {
		doc := m.docs[docID]
		if doc == nil {
			continue
		}
		if !tenantVisible(doc.TenantID, q.TenantID, q.IncludePublic) {
			continue
		}
		if !matchesDocument(doc, q.Filters) {
			continue
		}
		for _, c := range chunks {
			if !matchesTags(c, q.Filters.Tags) {
				continue
			}
			considered++
			sim := cosine(q.Vector, c.Embedding)
			if sim < q.Threshold {
				continue
			}
			candidates = append(candidates, &ScoredChunk{Chunk: c, Similarity: sim})
		}
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return &QueryResult{Chunks: candidates, Considered: considered}, nil
}

// ListChunks returns the chunks visible under scope without ranking.
func (m *Memory) ListChunks(ctx context.Context, scope Scope) ([]*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := scope.Limit
	if limit <= 0 || limit > MaxTopK {
		limit = MaxTopK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Chunk
	for docID, chunks := range m.chunks {
		doc := m.docs[docID]
		if doc == nil {
			continue
		}
		if !tenantVisible(doc.TenantID, scope.TenantID, scope.IncludePublic) {
			continue
		}
		if !matchesDocument(doc, scope.Filters) {
			continue
		}
		for _, c := range chunks {
			if matchesTags(c, scope.Filters.Tags) {
				out = append(out, c)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes the document and its chunks. Unknown IDs are a no-op.
func (m *Memory) Delete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, documentID)
	delete(m.chunks, documentID)
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	copied := *doc
	return &copied, nil
}

func (m *Memory) SetDocumentStatus(ctx context.Context, documentID string, status DocumentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[documentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	doc.Status = status
	return nil
}

func (m *Memory) ListDocuments(ctx context.Context, tenantID string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*Document
	for _, doc := range m.docs {
		if tenantVisible(doc.TenantID, tenantID, true) {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *Memory) Stats(ctx context.Context, tenantID string) (*IndexStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &IndexStats{}
	for docID, doc := range m.docs {
		if !tenantVisible(doc.TenantID, tenantID, true) {
			continue
		}
		stats.Documents++
		stats.Chunks += len(m.chunks[docID])
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

// tenantVisible reports whether a chunk or document owned by ownerTenant
// may be seen by requestTenant. An empty owner means public.
func tenantVisible(ownerTenant, requestTenant string, includePublic bool) bool {
	if ownerTenant == "" {
		return includePublic
	}
	return ownerTenant == requestTenant
}

// matchesDocument applies document-level metadata filters.
func matchesDocument(doc *Document, f Filters) bool {
	if f.Subject != "" && doc.Subject != f.Subject {
		return false
	}
	if f.Grade != "" && doc.Grade != f.Grade {
		return false
	}
	if f.Unit != "" && doc.Unit != f.Unit {
		return false
	}
	if f.DocumentType != "" && doc.Type != f.DocumentType {
		return false
	}
	if f.YearFrom != 0 && doc.Year < f.YearFrom {
		return false
	}
	if f.YearTo != 0 && doc.Year > f.YearTo {
		return false
	}
	return true
}

// matchesTags reports whether the chunk carries at least one wanted tag.
// An empty filter matches everything.
func matchesTags(c *Chunk, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		for _, t := range c.Metadata.Tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

// sortCandidates orders by similarity descending with a deterministic
// tiebreak on document ID and chunk index.
func sortCandidates(candidates []*ScoredChunk) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Chunk.DocumentID != b.Chunk.DocumentID {
			return a.Chunk.DocumentID < b.Chunk.DocumentID
		}
		return a.Chunk.ChunkIndex < b.Chunk.ChunkIndex
	})
}

// cosine computes cosine similarity between two equal-length vectors.
// Zero vectors yield similarity 0.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
