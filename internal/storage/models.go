package storage

import "time"

// DocumentStatus tracks the indexing lifecycle of a document.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusError      DocumentStatus = "error"
)

// Document is the catalog record for an indexed document. Documents carry
// no embedding vector; they exist for status tracking and listing.
type Document struct {
	ID         string
	TenantID   string // empty means public/shared, visible to every tenant
	Filename   string
	Type       string // "textbook", "exam", "worksheet", ...
	Subject    string
	Grade      string
	Unit       string
	Year       int
	Status     DocumentStatus
	StorageRef string
	Size       int64
	UpdatedAt  time.Time
}

// ChunkMetadata is the structural metadata attached to a chunk, supplied
// by the extraction collaborator.
type ChunkMetadata struct {
	Page          int
	Section       string
	ProblemNumber string
	Tags          []string
}

// Chunk is the unit of embedding and retrieval: a bounded slice of a
// document's text plus its vector.
type Chunk struct {
	ID         string
	DocumentID string
	TenantID   string // inherited from the document; empty means public
	Content    string
	ChunkIndex int // 0-based, dense within a document
	Embedding  []float32
	TokenCount int
	Metadata   ChunkMetadata
	CreatedAt  time.Time
}

// Filters narrows a similarity query by document metadata. Zero values
// mean "no constraint".
type Filters struct {
	Subject      string
	Grade        string
	Unit         string
	DocumentType string
	YearFrom     int
	YearTo       int
	Tags         []string // chunk must carry at least one of these
}

// Query is a filtered similarity query against the chunk store.
type Query struct {
	Vector        []float32
	TenantID      string
	IncludePublic bool // also match chunks with no tenant
	TopK          int
	Threshold     float64 // minimum cosine similarity, inclusive
	Filters       Filters
}

// Scope selects chunks by tenant visibility and metadata without any
// vector ranking.
type Scope struct {
	TenantID      string
	IncludePublic bool
	Filters       Filters
	Limit         int // 0 means MaxTopK
}

// ScoredChunk pairs a chunk with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk      *Chunk
	Similarity float64
}

// QueryResult holds ranked candidates and how many chunks passed the
// metadata filter before thresholding.
type QueryResult struct {
	Chunks     []*ScoredChunk
	Considered int
}

// MaxTopK caps the number of results a single query may request. The cap
// applies regardless of what the caller asks for.
const MaxTopK = 50
