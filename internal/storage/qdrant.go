package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// CollectionName is the single Qdrant collection holding document
// manifests and chunk points.
const CollectionName = "study_chunks"

// publicTenantKey is the payload keyword stored for chunks that belong to
// no tenant. Qdrant keyword matching cannot target the empty string.
const publicTenantKey = "_public"

const upsertBatchSize = 100

// QdrantIndex is the Qdrant-backed Index implementation.
//
// Atomic replace works through a version marker: every Store writes the
// new chunk set under a fresh version ID, flips the document's current
// version only after all points are in, and deletes the stale points
// afterwards. Readers filter results against the current version, so a
// query sees either the old set or the new one, never a mix.
type QdrantIndex struct {
	client    *qdrant.Client
	dimension int

	mu       sync.RWMutex
	versions map[string]string // documentID -> current version
}

// NewQdrantIndex connects to Qdrant, performs a health check with retry,
// ensures the collection exists, and loads the current document versions.
func NewQdrantIndex(ctx context.Context, host string, port int, dimension int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:    client,
		dimension: dimension,
		versions:  make(map[string]string),
	}

	if err := idx.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	if err := idx.loadVersions(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return idx, nil
}

// healthCheckWithRetry performs a health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantIndex) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantIndex) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection and payload indexes if missing.
// Idempotent.
func (s *QdrantIndex) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	// Named vectors let document manifests (no vector) and chunks share
	// the collection.
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			"content": {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes creates indexes for every filterable field.
// Without these, tenant and metadata filtering is drastically slower.
func (s *QdrantIndex) createPayloadIndexes(ctx context.Context) error {
	keyword := []string{
		"kind",        // "document" manifest vs "chunk"
		"tenant_id",   // tenant scoping
		"document_id", // replace/delete by document
		"subject",
		"grade",
		"unit",
		"doc_type",
		"tags",
		"version", // stale point cleanup
	}
	for _, field := range keyword {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "year",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field year: %w", err)
	}
	return nil
}

// loadVersions scrolls all document manifests to rebuild the in-memory
// version map after a restart.
func (s *QdrantIndex) loadVersions(ctx context.Context) error {
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch("kind", "document")},
			},
			Limit:       qdrant.PtrOf(batchSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayloadInclude("document_id", "version"),
		})
		if err != nil {
			return fmt.Errorf("failed to scroll document manifests: %w", err)
		}

		s.mu.Lock()
		for _, result := range results {
			docID := result.Payload["document_id"].GetStringValue()
			if docID != "" {
				s.versions[docID] = result.Payload["version"].GetStringValue()
			}
		}
		s.mu.Unlock()

		if uint32(len(results)) < batchSize {
			return nil
		}
		offset = results[len(results)-1].Id
	}
}

// Store replaces the chunk set for doc. New points are written under a
// fresh version, the manifest flips to it, and only then are the old
// points removed. On failure the previous version stays current and the
// partial new points are cleaned up.
func (s *QdrantIndex) Store(ctx context.Context, doc *Document, chunks []*Chunk) error {
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), s.dimension)
		}
	}

	version := uuid.New().String()
	tenant := tenantKey(doc.TenantID)

	// 1. Write the new chunk points in batches.
	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))
		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, c := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(c.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					"content": qdrant.NewVector(c.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"kind":           "chunk",
					"document_id":    doc.ID,
					"tenant_id":      tenant,
					"version":        version,
					"chunk_index":    int64(c.ChunkIndex),
					"content":        c.Content,
					"token_count":    int64(c.TokenCount),
					"page":           int64(c.Metadata.Page),
					"section":        c.Metadata.Section,
					"problem_number": c.Metadata.ProblemNumber,
					"tags":           toAnySlice(c.Metadata.Tags),
					"subject":        doc.Subject,
					"grade":          doc.Grade,
					"unit":           doc.Unit,
					"doc_type":       doc.Type,
					"year":           int64(doc.Year),
					"created_at":     c.CreatedAt.UTC().Format(time.RFC3339),
				}),
			}
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			s.cleanupVersion(doc.ID, version)
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	// 2. Flip the manifest to the new version.
	if err := s.upsertWithRetry(ctx, []*qdrant.PointStruct{manifestPoint(doc, version)}); err != nil {
		s.cleanupVersion(doc.ID, version)
		return fmt.Errorf("failed to upsert document manifest: %w", err)
	}

	s.mu.Lock()
	s.versions[doc.ID] = version
	s.mu.Unlock()

	// 3. Remove the superseded points. Readers already filter on the new
	// version, so lingering stale points are invisible even if this
	// delete is delayed.
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("kind", "chunk"),
				qdrant.NewMatch("document_id", doc.ID),
			},
			MustNot: []*qdrant.Condition{
				qdrant.NewMatch("version", version),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete stale chunks: %w", err)
	}
	return nil
}

// PutDocument upserts the manifest, preserving the current chunk-set
// version so existing chunks stay visible.
func (s *QdrantIndex) PutDocument(ctx context.Context, doc *Document) error {
	s.mu.RLock()
	version := s.versions[doc.ID]
	s.mu.RUnlock()

	if err := s.upsertWithRetry(ctx, []*qdrant.PointStruct{manifestPoint(doc, version)}); err != nil {
		return fmt.Errorf("failed to upsert document manifest: %w", err)
	}
	return nil
}

// manifestPoint builds the vectorless catalog point for a document.
func manifestPoint(doc *Document, version string) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(manifestID(doc.ID)),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			"kind":        "document",
			"document_id": doc.ID,
			"tenant_id":   tenantKey(doc.TenantID),
			"version":     version,
			"filename":    doc.Filename,
			"doc_type":    doc.Type,
			"subject":     doc.Subject,
			"grade":       doc.Grade,
			"unit":        doc.Unit,
			"year":        int64(doc.Year),
			"status":      string(doc.Status),
			"storage_ref": doc.StorageRef,
			"size":        doc.Size,
			"updated_at":  time.Now().UTC().Format(time.RFC3339),
		}),
	}
}

// cleanupVersion best-effort deletes points written under a version that
// never became current.
func (s *QdrantIndex) cleanupVersion(documentID, version string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
				qdrant.NewMatch("version", version),
			},
		}),
	})
}

// upsertWithRetry performs an upsert with exponential backoff.
func (s *QdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// QuerySimilar runs a filtered vector query. Results are post-filtered
// against the current version of their document, so a replace in progress
// never leaks a mixed set.
func (s *QdrantIndex) QuerySimilar(ctx context.Context, q Query) (*QueryResult, error) {
	if len(q.Vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(q.Vector), s.dimension)
	}

	// An anonymous caller that opts out of public content can match
	// nothing: the payload keyword for the empty tenant is the public
	// marker, so filtering on it would leak every public chunk.
	if q.TenantID == "" && !q.IncludePublic {
		return &QueryResult{Chunks: []*ScoredChunk{}}, nil
	}

	topK := q.TopK
	if topK <= 0 || topK > MaxTopK {
		topK = MaxTopK
	}

	filter := chunkFilter(q.TenantID, q.IncludePublic, q.Filters)

	// Count the candidate set before thresholding so callers can tell
	// "no matches" from "nothing considered".
	considered, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter:         filter,
		Exact:          qdrant.PtrOf(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	// Over-fetch to survive the version post-filter.
	vectorName := "content"
	threshold := float32(q.Threshold)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(q.Vector...),
		Using:          &vectorName,
		Filter:         filter,
		ScoreThreshold: &threshold,
		Limit:          qdrant.PtrOf(uint64(topK * 2)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	s.mu.RLock()
	current := make(map[string]string, len(s.versions))
	for k, v := range s.versions {
		current[k] = v
	}
	s.mu.RUnlock()

	candidates := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		docID := payload["document_id"].GetStringValue()
		if current[docID] != payload["version"].GetStringValue() {
			continue // stale point from a replace in progress
		}

		sim := float64(result.Score)
		if sim < q.Threshold {
			continue
		}

		candidates = append(candidates, &ScoredChunk{
			Chunk:      chunkFromPayload(result.Id.GetUuid(), payload),
			Similarity: sim,
		})
	}

	sortCandidates(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return &QueryResult{Chunks: candidates, Considered: int(considered)}, nil
}

// chunkFilter translates tenant scoping and metadata filters into a
// Qdrant filter, applied before ranking. Callers must reject the
// anonymous-without-public case first; the empty tenant has no keyword
// of its own.
func chunkFilter(tenantID string, includePublic bool, f Filters) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatch("kind", "chunk"),
	}

	if includePublic {
		must = append(must, qdrant.NewMatchKeywords("tenant_id", tenantKey(tenantID), publicTenantKey))
	} else {
		must = append(must, qdrant.NewMatch("tenant_id", tenantKey(tenantID)))
	}

	if f.Subject != "" {
		must = append(must, qdrant.NewMatch("subject", f.Subject))
	}
	if f.Grade != "" {
		must = append(must, qdrant.NewMatch("grade", f.Grade))
	}
	if f.Unit != "" {
		must = append(must, qdrant.NewMatch("unit", f.Unit))
	}
	if f.DocumentType != "" {
		must = append(must, qdrant.NewMatch("doc_type", f.DocumentType))
	}
	if f.YearFrom != 0 || f.YearTo != 0 {
		r := &qdrant.Range{}
		if f.YearFrom != 0 {
			r.Gte = qdrant.PtrOf(float64(f.YearFrom))
		}
		if f.YearTo != 0 {
			r.Lte = qdrant.PtrOf(float64(f.YearTo))
		}
		must = append(must, qdrant.NewRange("year", r))
	}
	if len(f.Tags) > 0 {
		must = append(must, qdrant.NewMatchKeywords("tags", f.Tags...))
	}

	return &qdrant.Filter{Must: must}
}

// ListChunks scrolls the chunks visible under scope without ranking,
// post-filtering stale versions the same way QuerySimilar does.
func (s *QdrantIndex) ListChunks(ctx context.Context, scope Scope) ([]*Chunk, error) {
	if scope.TenantID == "" && !scope.IncludePublic {
		return []*Chunk{}, nil
	}

	limit := scope.Limit
	if limit <= 0 || limit > MaxTopK {
		limit = MaxTopK
	}
	filter := chunkFilter(scope.TenantID, scope.IncludePublic, scope.Filters)

	s.mu.RLock()
	current := make(map[string]string, len(s.versions))
	for k, v := range s.versions {
		current[k] = v
	}
	s.mu.RUnlock()

	chunks := make([]*Chunk, 0, limit)
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for len(chunks) < limit {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}
		for _, result := range results {
			payload := result.Payload
			docID := payload["document_id"].GetStringValue()
			if current[docID] != payload["version"].GetStringValue() {
				continue
			}
			chunks = append(chunks, chunkFromPayload(result.Id.GetUuid(), payload))
			if len(chunks) == limit {
				break
			}
		}
		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

// Delete removes the manifest and every chunk point for a document.
func (s *QdrantIndex) Delete(ctx context.Context, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}

	s.mu.Lock()
	delete(s.versions, documentID)
	s.mu.Unlock()
	return nil
}

// GetDocument retrieves the catalog record from the manifest point.
func (s *QdrantIndex) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(manifestID(documentID))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document manifest: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	return documentFromPayload(result[0].Payload), nil
}

// SetDocumentStatus updates the status field on the manifest point.
func (s *QdrantIndex) SetDocumentStatus(ctx context.Context, documentID string, status DocumentStatus) error {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return err
	}
	_, err := s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: CollectionName,
		Payload: qdrant.NewValueMap(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		}),
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewIDUUID(manifestID(documentID))),
	})
	if err != nil {
		return fmt.Errorf("failed to set document status: %w", err)
	}
	return nil
}

// ListDocuments scrolls the manifests visible to a tenant.
func (s *QdrantIndex) ListDocuments(ctx context.Context, tenantID string) ([]*Document, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("kind", "document"),
			qdrant.NewMatchKeywords("tenant_id", tenantKey(tenantID), publicTenantKey),
		},
	}

	var docs []*Document
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll documents: %w", err)
		}
		for _, result := range results {
			docs = append(docs, documentFromPayload(result.Payload))
		}
		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Stats counts the manifests and chunks visible to a tenant.
func (s *QdrantIndex) Stats(ctx context.Context, tenantID string) (*IndexStats, error) {
	scope := qdrant.NewMatchKeywords("tenant_id", tenantKey(tenantID), publicTenantKey)

	docCount, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("kind", "document"), scope},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	chunkCount, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("kind", "chunk"), scope},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	return &IndexStats{Documents: int(docCount), Chunks: int(chunkCount)}, nil
}

// Close closes the underlying gRPC client.
func (s *QdrantIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// manifestID derives a stable point UUID for a document's manifest from
// its caller-supplied ID.
func manifestID(documentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("manifest:"+documentID)).String()
}

// tenantKey maps the empty (public) tenant to its payload keyword.
func tenantKey(tenantID string) string {
	if tenantID == "" {
		return publicTenantKey
	}
	return tenantID
}

// tenantFromKey is the inverse of tenantKey.
func tenantFromKey(key string) string {
	if key == publicTenantKey {
		return ""
	}
	return key
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) *Chunk {
	var tags []string
	if list := payload["tags"].GetListValue(); list != nil {
		for _, v := range list.Values {
			tags = append(tags, v.GetStringValue())
		}
	}

	createdAt, err := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
	if err != nil {
		createdAt = time.Time{}
	}

	return &Chunk{
		ID:         id,
		DocumentID: payload["document_id"].GetStringValue(),
		TenantID:   tenantFromKey(payload["tenant_id"].GetStringValue()),
		Content:    payload["content"].GetStringValue(),
		ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		TokenCount: int(payload["token_count"].GetIntegerValue()),
		Metadata: ChunkMetadata{
			Page:          int(payload["page"].GetIntegerValue()),
			Section:       payload["section"].GetStringValue(),
			ProblemNumber: payload["problem_number"].GetStringValue(),
			Tags:          tags,
		},
		CreatedAt: createdAt,
	}
}

func documentFromPayload(payload map[string]*qdrant.Value) *Document {
	updatedAt, err := time.Parse(time.RFC3339, payload["updated_at"].GetStringValue())
	if err != nil {
		updatedAt = time.Time{}
	}

	return &Document{
		ID:         payload["document_id"].GetStringValue(),
		TenantID:   tenantFromKey(payload["tenant_id"].GetStringValue()),
		Filename:   payload["filename"].GetStringValue(),
		Type:       payload["doc_type"].GetStringValue(),
		Subject:    payload["subject"].GetStringValue(),
		Grade:      payload["grade"].GetStringValue(),
		Unit:       payload["unit"].GetStringValue(),
		Year:       int(payload["year"].GetIntegerValue()),
		Status:     DocumentStatus(payload["status"].GetStringValue()),
		StorageRef: payload["storage_ref"].GetStringValue(),
		Size:       payload["size"].GetIntegerValue(),
		UpdatedAt:  updatedAt,
	}
}
