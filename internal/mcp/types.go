// Package mcp exposes the indexing and retrieval core over the Model
// Context Protocol.
package mcp

import (
	"time"

	"github.com/hagwonlab/studyindex/internal/search"
)

// IndexDocumentInput defines the input parameters for the index_document tool.
type IndexDocumentInput struct {
	// DocumentID identifies the document; re-using an ID replaces its chunk set.
	DocumentID string `json:"document_id" jsonschema:"Unique document identifier; re-indexing the same ID replaces its chunks"`
	// Text is the extracted document text to index.
	Text string `json:"text" jsonschema:"Extracted plain or markdown text of the document"`
	// TenantID scopes the document to one academy. Empty means public.
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Owning tenant; empty makes the document public"`
	// Filename is the original upload name.
	Filename string `json:"filename,omitempty" jsonschema:"Original filename"`
	// DocType categorizes the document (textbook, exam, worksheet).
	DocType string `json:"doc_type,omitempty" jsonschema:"Document type such as textbook or exam"`
	Subject string `json:"subject,omitempty" jsonschema:"Subject, e.g. math"`
	Grade   string `json:"grade,omitempty" jsonschema:"School grade"`
	Unit    string `json:"unit,omitempty" jsonschema:"Curriculum unit"`
	Year    int    `json:"year,omitempty" jsonschema:"Publication or exam year"`
	// Tags are attached to every chunk of this document.
	Tags []string `json:"tags,omitempty" jsonschema:"Tags attached to every chunk"`
	// SplitByProblems segments on problem-numbering boundaries.
	SplitByProblems bool `json:"split_by_problems,omitempty" jsonschema:"Segment on problem boundaries before packing"`
	// MarkdownSections segments on markdown headings.
	MarkdownSections bool `json:"markdown_sections,omitempty" jsonschema:"Segment on markdown heading boundaries"`
	// Wait blocks until indexing finishes instead of returning immediately.
	Wait bool `json:"wait,omitempty" jsonschema:"Block until the job reaches a terminal state"`
}

// ProgressOutput reports the state of an indexing job.
type ProgressOutput struct {
	DocumentID      string     `json:"document_id"`
	Status          string     `json:"status"`
	TotalChunks     int        `json:"total_chunks"`
	ProcessedChunks int        `json:"processed_chunks"`
	ProgressPercent int        `json:"progress_percent"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// GetProgressInput defines the input for the get_indexing_progress tool.
type GetProgressInput struct {
	DocumentID string `json:"document_id" jsonschema:"Document to report progress for"`
}

// SearchInput defines the input parameters for the search_chunks tool.
type SearchInput struct {
	// Query is the search text.
	Query string `json:"query" jsonschema:"The search query"`
	// TenantID scopes results to one academy's documents.
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Requesting tenant"`
	// IncludePublic also matches chunks from public documents.
	IncludePublic bool `json:"include_public,omitempty" jsonschema:"Also search public documents"`
	// TopK is the maximum number of chunks to return.
	TopK int `json:"top_k,omitempty" jsonschema:"Maximum chunks to return"`
	// Threshold is the minimum cosine similarity (0-1).
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Minimum similarity threshold"`
	// UseHybrid fuses keyword scoring with vector similarity.
	UseHybrid bool `json:"use_hybrid,omitempty" jsonschema:"Blend keyword scoring into the ranking"`
	// VectorWeight balances similarity vs keyword score in hybrid mode.
	VectorWeight float64 `json:"vector_weight,omitempty" jsonschema:"Weight of vector similarity in hybrid fusion"`

	Subject  string   `json:"subject,omitempty" jsonschema:"Filter by subject"`
	Grade    string   `json:"grade,omitempty" jsonschema:"Filter by grade"`
	Unit     string   `json:"unit,omitempty" jsonschema:"Filter by unit"`
	DocType  string   `json:"doc_type,omitempty" jsonschema:"Filter by document type"`
	YearFrom int      `json:"year_from,omitempty" jsonschema:"Earliest year to include"`
	YearTo   int      `json:"year_to,omitempty" jsonschema:"Latest year to include"`
	Tags     []string `json:"tags,omitempty" jsonschema:"Chunk must carry at least one of these tags"`
}

// SearchOutput contains the ranked results.
type SearchOutput struct {
	Results               []search.Result `json:"results"`
	SearchTimeMs          int64           `json:"search_time_ms"`
	TotalChunksConsidered int             `json:"total_chunks_considered"`
	// Message provides context such as "no matching chunks".
	Message string `json:"message,omitempty"`
}

// DeleteDocumentInput defines the input for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"Document to delete; cancels any in-flight indexing"`
}

// DeleteDocumentOutput confirms the deletion.
type DeleteDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// ListDocumentsInput defines the input for the list_documents tool.
type ListDocumentsInput struct {
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Tenant whose documents to list; public documents are always included"`
}

// DocumentInfo is one catalog entry.
type DocumentInfo struct {
	DocumentID string    `json:"document_id"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	DocType    string    `json:"doc_type,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Grade      string    `json:"grade,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	Year       int       `json:"year,omitempty"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListDocumentsOutput contains the catalog entries visible to a tenant.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// StatusInput defines the input for the get_index_status tool.
type StatusInput struct {
	TenantID string `json:"tenant_id,omitempty" jsonschema:"Tenant scope for the counts"`
}

// StatusOutput summarizes the index contents visible to a tenant.
type StatusOutput struct {
	TotalDocuments int `json:"total_documents"`
	TotalChunks    int `json:"total_chunks"`
}
