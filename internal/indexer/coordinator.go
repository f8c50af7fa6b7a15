// Package indexer orchestrates the per-document pipeline: split, embed,
// store. Jobs run asynchronously with pollable progress and clean
// cancellation.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hagwonlab/studyindex/internal/embedding"
	"github.com/hagwonlab/studyindex/internal/metadata"
	"github.com/hagwonlab/studyindex/internal/splitter"
	"github.com/hagwonlab/studyindex/internal/storage"
	"github.com/hagwonlab/studyindex/internal/token"
)

var (
	ErrCancelled       = errors.New("indexing cancelled")
	ErrAlreadyIndexing = errors.New("document is already being indexed")
	ErrUnknownDocument = errors.New("no indexing state for document")
)

// DocumentMeta is the caller-supplied metadata for a document, delivered
// by the extraction collaborator alongside the text.
type DocumentMeta struct {
	Filename   string
	Type       string
	Subject    string
	Grade      string
	Unit       string
	Year       int
	StorageRef string
	Size       int64
	Tags       []string

	// Chunking overrides the coordinator's default chunking config for
	// this document when non-zero.
	Chunking *splitter.Config
}

// Coordinator runs indexing jobs. Each document has at most one job in
// flight; re-running a completed document fully supersedes its previous
// chunk set. On failure at any stage the document's prior chunks stay
// untouched and its status flips to error.
type Coordinator struct {
	index     storage.Index
	generator *embedding.Generator
	chunking  splitter.Config
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	mu       sync.Mutex
	progress Progress
	cancel   context.CancelFunc
	done     chan struct{}
}

func (j *job) snapshot() *Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.progress
	p.ProgressPercent = p.percent()
	return &p
}

// NewCoordinator creates a coordinator with the given default chunking
// config. A nil logger falls back to slog.Default().
func NewCoordinator(index storage.Index, generator *embedding.Generator, chunking splitter.Config, logger *slog.Logger) (*Coordinator, error) {
	if err := chunking.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		index:     index,
		generator: generator,
		chunking:  chunking,
		logger:    logger,
		jobs:      make(map[string]*job),
	}, nil
}

// IndexDocument starts an asynchronous indexing job for the document and
// returns its initial progress. It validates the chunking config and
// registers the document as processing before returning; everything else
// happens in the background. A second call for a document with a job
// still in flight fails with ErrAlreadyIndexing.
func (c *Coordinator) IndexDocument(ctx context.Context, documentID, text, tenantID string, meta DocumentMeta) (*Progress, error) {
	cfg := c.chunking
	if meta.Chunking != nil {
		cfg = *meta.Chunking
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.jobs[documentID]; ok {
		existing.mu.Lock()
		terminal := existing.progress.Status.Terminal()
		existing.mu.Unlock()
		if !terminal {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrAlreadyIndexing, documentID)
		}
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		progress: Progress{
			DocumentID: documentID,
			Status:     StatusPending,
			StartedAt:  time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.jobs[documentID] = j
	c.mu.Unlock()

	doc := documentRecord(documentID, tenantID, meta)
	doc.Status = storage.StatusProcessing
	if err := c.index.PutDocument(ctx, doc); err != nil {
		cancel()
		c.finish(j, StatusError, err)
		return nil, fmt.Errorf("register document: %w", err)
	}

	go c.run(jobCtx, j, documentID, text, tenantID, meta, cfg)

	return j.snapshot(), nil
}

// run executes the pipeline stages for one document.
func (c *Coordinator) run(ctx context.Context, j *job, documentID, text, tenantID string, meta DocumentMeta, cfg splitter.Config) {
	defer j.cancel()

	log := c.logger.With("document", documentID, "tenant", tenantID)

	// Stage: chunking.
	if !c.advance(ctx, j, documentID, StatusChunking) {
		return
	}
	pieces, err := splitter.Split(text, cfg)
	if err != nil {
		c.fail(j, documentID, err)
		return
	}
	j.mu.Lock()
	j.progress.TotalChunks = len(pieces)
	j.mu.Unlock()
	log.Debug("chunked document", "chunks", len(pieces))

	// Stage: embedding.
	if !c.advance(ctx, j, documentID, StatusEmbedding) {
		return
	}
	vectors, err := c.generator.EmbedBatchFunc(ctx, pieces, func(completed int) {
		j.mu.Lock()
		j.progress.ProcessedChunks = completed
		j.mu.Unlock()
	})
	if err != nil {
		c.fail(j, documentID, err)
		return
	}

	// Stage: storing. The store's replace is atomic, so a failure here
	// still leaves the prior chunk set intact.
	if !c.advance(ctx, j, documentID, StatusStoring) {
		return
	}
	now := time.Now().UTC()
	chunks := make([]*storage.Chunk, len(pieces))
	for i, piece := range pieces {
		structural := metadata.Extract(piece)
		chunks[i] = &storage.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			TenantID:   tenantID,
			Content:    piece,
			ChunkIndex: i,
			Embedding:  vectors[i],
			TokenCount: token.Count(piece),
			Metadata: storage.ChunkMetadata{
				Section:       structural.Section,
				ProblemNumber: structural.ProblemNumber,
				Tags:          meta.Tags,
			},
			CreatedAt: now,
		}
	}

	doc := documentRecord(documentID, tenantID, meta)
	doc.Status = storage.StatusReady
	if err := c.index.Store(ctx, doc, chunks); err != nil {
		c.fail(j, documentID, err)
		return
	}

	c.finish(j, StatusCompleted, nil)
	log.Info("indexed document", "chunks", len(chunks))
}

// advance moves the job into the next stage, aborting first if the job
// was cancelled. Returns false when the job must stop.
func (c *Coordinator) advance(ctx context.Context, j *job, documentID string, next Status) bool {
	if ctx.Err() != nil {
		c.finish(j, StatusCancelled, ErrCancelled)
		c.logger.Info("indexing cancelled", "document", documentID)
		return false
	}
	j.mu.Lock()
	j.progress.Status = next
	j.mu.Unlock()
	return true
}

// fail marks the job terminal and flips the document status to error,
// leaving its prior chunk set searchable. Cancellation mid-stage is
// recorded as cancelled, not error.
func (c *Coordinator) fail(j *job, documentID string, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, ErrCancelled) {
		c.finish(j, StatusCancelled, ErrCancelled)
		c.logger.Info("indexing cancelled", "document", documentID)
		return
	}

	c.finish(j, StatusError, cause)
	c.logger.Warn("indexing failed", "document", documentID, "error", cause)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.index.SetDocumentStatus(ctx, documentID, storage.StatusError); err != nil {
		c.logger.Warn("failed to record error status", "document", documentID, "error", err)
	}
}

// finish records the terminal state and releases waiters.
func (c *Coordinator) finish(j *job, status Status, cause error) {
	j.mu.Lock()
	if !j.progress.Status.Terminal() {
		j.progress.Status = status
		if cause != nil && status != StatusCompleted {
			j.progress.Error = cause.Error()
		}
		if status == StatusCompleted {
			j.progress.ProcessedChunks = j.progress.TotalChunks
		}
		now := time.Now().UTC()
		j.progress.CompletedAt = &now
		close(j.done)
	}
	j.mu.Unlock()
}

// GetProgress returns the progress of the most recent job for a document.
// For documents indexed before a restart it synthesizes a terminal
// progress from the catalog record.
func (c *Coordinator) GetProgress(ctx context.Context, documentID string) (*Progress, error) {
	c.mu.Lock()
	j, ok := c.jobs[documentID]
	c.mu.Unlock()
	if ok {
		return j.snapshot(), nil
	}

	doc, err := c.index.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, documentID)
		}
		return nil, err
	}

	p := &Progress{DocumentID: documentID}
	switch doc.Status {
	case storage.StatusReady:
		p.Status = StatusCompleted
		p.ProgressPercent = 100
	case storage.StatusError:
		p.Status = StatusError
	default:
		p.Status = StatusPending
	}
	return p, nil
}

// WaitForCompletion blocks until the document's job reaches a terminal
// state or ctx expires. Callers needing synchronous indexing use this
// after IndexDocument.
func (c *Coordinator) WaitForCompletion(ctx context.Context, documentID string) (*Progress, error) {
	c.mu.Lock()
	j, ok := c.jobs[documentID]
	c.mu.Unlock()
	if !ok {
		return c.GetProgress(ctx, documentID)
	}

	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeleteDocument cancels any in-flight job for the document, waits for it
// to stop, and removes the document with all its chunks.
func (c *Coordinator) DeleteDocument(ctx context.Context, documentID string) error {
	c.mu.Lock()
	j, ok := c.jobs[documentID]
	c.mu.Unlock()

	if ok {
		j.cancel()
		select {
		case <-j.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.index.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// documentRecord builds the catalog record from caller metadata.
func documentRecord(documentID, tenantID string, meta DocumentMeta) *storage.Document {
	return &storage.Document{
		ID:         documentID,
		TenantID:   tenantID,
		Filename:   meta.Filename,
		Type:       meta.Type,
		Subject:    meta.Subject,
		Grade:      meta.Grade,
		Unit:       meta.Unit,
		Year:       meta.Year,
		StorageRef: meta.StorageRef,
		Size:       meta.Size,
		UpdatedAt:  time.Now().UTC(),
	}
}
