package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hagwonlab/studyindex/internal/indexer"
	"github.com/hagwonlab/studyindex/internal/search"
	"github.com/hagwonlab/studyindex/internal/splitter"
	"github.com/hagwonlab/studyindex/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server      *mcp.Server
	index       storage.Index
	coordinator *indexer.Coordinator
	engine      *search.Engine
}

// Config holds server dependencies.
type Config struct {
	Index       storage.Index
	Coordinator *indexer.Coordinator
	Engine      *search.Engine
	// Chunking is the base chunking config applied to index_document
	// calls; per-call flags toggle the segmentation strategy.
	Chunking splitter.Config
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "studyindex-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_document",
		Description: "Index a document's extracted text into tenant-scoped semantic chunks. Replaces any previous chunks for the same document ID. Runs asynchronously unless wait is set.",
	}, makeIndexHandler(cfg.Coordinator, cfg.Chunking))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_indexing_progress",
		Description: "Get the progress of an indexing job: stage, chunk counts, percentage, and any failure.",
	}, makeProgressHandler(cfg.Coordinator))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Search indexed chunks by semantic similarity, optionally fused with keyword scoring. Results are scoped to the requesting tenant plus, optionally, public documents.",
	}, makeSearchHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its chunks. Cancels any in-flight indexing for it.",
	}, makeDeleteHandler(cfg.Coordinator))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents visible to a tenant with their indexing status and metadata.",
	}, makeListHandler(cfg.Index))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get document and chunk counts visible to a tenant.",
	}, makeStatusHandler(cfg.Index))

	return &Server{
		server:      server,
		index:       cfg.Index,
		coordinator: cfg.Coordinator,
		engine:      cfg.Engine,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a streamable-HTTP handler for the server, mountable
// on a mux path alongside the health endpoint. Sessions are stateful; the
// get_indexing_progress tool depends on the session outliving a single
// index_document call.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
