// Package storage provides tenant-scoped persistent chunk stores with
// atomic per-document replace and filtered similarity queries.
package storage

import "context"

// Index is a tenant-scoped chunk store. Two implementations exist: an
// in-process Memory store and a Qdrant-backed store.
//
// Store replaces a document's entire chunk set; the replace is atomic from
// a reader's perspective, so a concurrent QuerySimilar sees either the old
// set or the new set, never a mix.
type Index interface {
	// Store upserts the document record and fully replaces its chunk set.
	// The embedding of every chunk must match the store's dimension.
	Store(ctx context.Context, doc *Document, chunks []*Chunk) error

	// PutDocument upserts the catalog record without touching the
	// document's chunk set. Used to track status before any chunks
	// exist and after failed reindex attempts.
	PutDocument(ctx context.Context, doc *Document) error

	// QuerySimilar applies tenant scoping and metadata filters before
	// ranking by descending cosine similarity, drops results below the
	// threshold, and returns at most min(TopK, MaxTopK) candidates.
	QuerySimilar(ctx context.Context, q Query) (*QueryResult, error)

	// ListChunks returns the chunks visible under scope without ranking,
	// ordered by document ID then chunk index, capped at
	// min(Limit, MaxTopK). Serves keyword-only retrieval when no query
	// vector is available.
	ListChunks(ctx context.Context, scope Scope) ([]*Chunk, error)

	// Delete removes a document record and all of its chunks.
	// Deleting an unknown document is not an error.
	Delete(ctx context.Context, documentID string) error

	// GetDocument returns the catalog record for a document, or
	// ErrDocumentNotFound.
	GetDocument(ctx context.Context, documentID string) (*Document, error)

	// SetDocumentStatus updates only the status of a document record.
	SetDocumentStatus(ctx context.Context, documentID string, status DocumentStatus) error

	// ListDocuments returns the catalog records visible to a tenant:
	// its own documents plus public ones. Ordered by document ID.
	ListDocuments(ctx context.Context, tenantID string) ([]*Document, error)

	// Stats reports document and chunk counts visible to a tenant.
	Stats(ctx context.Context, tenantID string) (*IndexStats, error)

	// Close releases any underlying connections.
	Close() error
}

// IndexStats summarizes the index contents visible to one tenant.
type IndexStats struct {
	Documents int
	Chunks    int
}
