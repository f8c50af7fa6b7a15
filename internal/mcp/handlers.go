package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hagwonlab/studyindex/internal/indexer"
	"github.com/hagwonlab/studyindex/internal/search"
	"github.com/hagwonlab/studyindex/internal/splitter"
	"github.com/hagwonlab/studyindex/internal/storage"
)

// makeIndexHandler creates the index_document tool handler. Indexing runs
// asynchronously; the handler returns the initial progress unless Wait is
// set, in which case it blocks for the terminal state.
func makeIndexHandler(coordinator *indexer.Coordinator, chunking splitter.Config) func(
	context.Context, *mcp.CallToolRequest, IndexDocumentInput,
) (*mcp.CallToolResult, ProgressOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexDocumentInput) (
		*mcp.CallToolResult, ProgressOutput, error,
	) {
		cfg := chunking
		cfg.SplitByProblems = input.SplitByProblems
		cfg.MarkdownSections = input.MarkdownSections

		meta := indexer.DocumentMeta{
			Filename: input.Filename,
			Type:     input.DocType,
			Subject:  input.Subject,
			Grade:    input.Grade,
			Unit:     input.Unit,
			Year:     input.Year,
			Size:     int64(len(input.Text)),
			Tags:     input.Tags,
			Chunking: &cfg,
		}

		progress, err := coordinator.IndexDocument(ctx, input.DocumentID, input.Text, input.TenantID, meta)
		if err != nil {
			return nil, ProgressOutput{}, fmt.Errorf("failed to start indexing: %w", err)
		}

		if input.Wait {
			progress, err = coordinator.WaitForCompletion(ctx, input.DocumentID)
			if err != nil {
				return nil, ProgressOutput{}, fmt.Errorf("failed to await indexing: %w", err)
			}
		}

		return nil, progressOutput(progress), nil
	}
}

// makeProgressHandler creates the get_indexing_progress tool handler.
func makeProgressHandler(coordinator *indexer.Coordinator) func(
	context.Context, *mcp.CallToolRequest, GetProgressInput,
) (*mcp.CallToolResult, ProgressOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetProgressInput) (
		*mcp.CallToolResult, ProgressOutput, error,
	) {
		progress, err := coordinator.GetProgress(ctx, input.DocumentID)
		if err != nil {
			if errors.Is(err, indexer.ErrUnknownDocument) {
				return nil, ProgressOutput{}, fmt.Errorf("unknown document: %s", input.DocumentID)
			}
			return nil, ProgressOutput{}, fmt.Errorf("failed to get progress: %w", err)
		}
		return nil, progressOutput(progress), nil
	}
}

// makeSearchHandler creates the search_chunks tool handler.
// A search that fails returns an error, never an empty-looking success,
// so "no matches" stays distinguishable from "search failed".
func makeSearchHandler(engine *search.Engine) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		resp, err := engine.Search(ctx, input.Query, input.TenantID, search.Options{
			TopK:          input.TopK,
			Threshold:     input.Threshold,
			UseHybrid:     input.UseHybrid,
			VectorWeight:  input.VectorWeight,
			IncludePublic: input.IncludePublic,
			Filters: storage.Filters{
				Subject:      input.Subject,
				Grade:        input.Grade,
				Unit:         input.Unit,
				DocumentType: input.DocType,
				YearFrom:     input.YearFrom,
				YearTo:       input.YearTo,
				Tags:         input.Tags,
			},
		})
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
		}

		out := SearchOutput{
			Results:               resp.Results,
			SearchTimeMs:          resp.SearchTimeMs,
			TotalChunksConsidered: resp.TotalChunksConsidered,
		}
		if len(out.Results) == 0 {
			out.Results = []search.Result{}
			out.Message = "No matching chunks. Try a lower threshold or broader filters."
		}
		return nil, out, nil
	}
}

// makeDeleteHandler creates the delete_document tool handler.
func makeDeleteHandler(coordinator *indexer.Coordinator) func(
	context.Context, *mcp.CallToolRequest, DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeleteDocumentInput) (
		*mcp.CallToolResult, DeleteDocumentOutput, error,
	) {
		if err := coordinator.DeleteDocument(ctx, input.DocumentID); err != nil {
			return nil, DeleteDocumentOutput{}, fmt.Errorf("failed to delete document: %w", err)
		}
		return nil, DeleteDocumentOutput{DocumentID: input.DocumentID, Deleted: true}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(index storage.Index) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs, err := index.ListDocuments(ctx, input.TenantID)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		infos := make([]DocumentInfo, 0, len(docs))
		for _, doc := range docs {
			infos = append(infos, DocumentInfo{
				DocumentID: doc.ID,
				TenantID:   doc.TenantID,
				Filename:   doc.Filename,
				DocType:    doc.Type,
				Subject:    doc.Subject,
				Grade:      doc.Grade,
				Unit:       doc.Unit,
				Year:       doc.Year,
				Status:     string(doc.Status),
				UpdatedAt:  doc.UpdatedAt,
			})
		}
		return nil, ListDocumentsOutput{Documents: infos, Count: len(infos)}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(index storage.Index) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		stats, err := index.Stats(ctx, input.TenantID)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("failed to get index status: %w", err)
		}
		return nil, StatusOutput{
			TotalDocuments: stats.Documents,
			TotalChunks:    stats.Chunks,
		}, nil
	}
}

func progressOutput(p *indexer.Progress) ProgressOutput {
	return ProgressOutput{
		DocumentID:      p.DocumentID,
		Status:          string(p.Status),
		TotalChunks:     p.TotalChunks,
		ProcessedChunks: p.ProcessedChunks,
		ProgressPercent: p.ProgressPercent,
		Error:           p.Error,
		StartedAt:       p.StartedAt,
		CompletedAt:     p.CompletedAt,
	}
}
