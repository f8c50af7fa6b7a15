package indexer

import "time"

// Status is the indexing state of a document job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusChunking  Status = "chunking"
	StatusEmbedding Status = "embedding"
	StatusStoring   Status = "storing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Progress is a pollable snapshot of an indexing job.
type Progress struct {
	DocumentID      string     `json:"document_id"`
	Status          Status     `json:"status"`
	TotalChunks     int        `json:"total_chunks"`
	ProcessedChunks int        `json:"processed_chunks"`
	ProgressPercent int        `json:"progress_percent"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// percent derives an overall percentage from the stage and chunk counts.
// Chunking and storing are cheap next to embedding, which gets the bulk
// of the range.
func (p *Progress) percent() int {
	switch p.Status {
	case StatusPending:
		return 0
	case StatusChunking:
		return 5
	case StatusEmbedding:
		if p.TotalChunks == 0 {
			return 10
		}
		return 10 + 75*p.ProcessedChunks/p.TotalChunks
	case StatusStoring:
		return 90
	case StatusCompleted:
		return 100
	default:
		return p.ProgressPercent
	}
}
