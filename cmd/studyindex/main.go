// Package main provides the studyindex CLI: an MCP server plus one-shot
// indexing and search commands for the document retrieval engine.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hagwonlab/studyindex/internal/config"
	"github.com/hagwonlab/studyindex/internal/embedding"
	"github.com/hagwonlab/studyindex/internal/indexer"
	mcpserver "github.com/hagwonlab/studyindex/internal/mcp"
	"github.com/hagwonlab/studyindex/internal/search"
	"github.com/hagwonlab/studyindex/internal/splitter"
	"github.com/hagwonlab/studyindex/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "studyindex",
	Short: "Tenant-scoped document indexing and hybrid retrieval engine",
	Long: `studyindex turns educational documents into searchable, tenant-scoped
semantic chunks and answers similarity/keyword queries against them.

Environment variables:
  OPENAI_API_KEY  OpenAI API key for embeddings (required)
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  STORE_BACKEND   "qdrant" or "memory" (default: memory)`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd, indexCmd, searchCmd, deleteCmd, statusCmd)

	indexCmd.Flags().String("id", "", "document ID (required)")
	indexCmd.Flags().String("file", "", "path to extracted text file (required)")
	indexCmd.Flags().String("tenant", "", "owning tenant; empty makes the document public")
	indexCmd.Flags().String("subject", "", "subject")
	indexCmd.Flags().String("grade", "", "grade")
	indexCmd.Flags().String("unit", "", "curriculum unit")
	indexCmd.Flags().String("type", "", "document type")
	indexCmd.Flags().Int("year", 0, "year")
	indexCmd.Flags().Bool("problems", false, "segment on problem boundaries")
	indexCmd.Flags().Bool("markdown", false, "segment on markdown headings")
	_ = indexCmd.MarkFlagRequired("id")
	_ = indexCmd.MarkFlagRequired("file")

	searchCmd.Flags().String("tenant", "", "requesting tenant")
	searchCmd.Flags().Int("top-k", 10, "maximum results")
	searchCmd.Flags().Float64("threshold", 0, "minimum similarity (default 0.7)")
	searchCmd.Flags().Bool("hybrid", false, "fuse keyword scoring")
	searchCmd.Flags().Bool("public", true, "include public documents")

	deleteCmd.Flags().String("id", "", "document ID (required)")
	_ = deleteCmd.MarkFlagRequired("id")

	statusCmd.Flags().String("tenant", "", "tenant scope")
}

func main() {
	// Load .env file if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// components holds the wired engine parts shared by all commands.
type components struct {
	index       storage.Index
	generator   *embedding.Generator
	coordinator *indexer.Coordinator
	engine      *search.Engine
	chunking    splitter.Config
}

// buildComponents wires the store, embedder, coordinator, and engine from
// configuration.
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	var index storage.Index
	switch cfg.Store.Backend {
	case "qdrant":
		qdrantIndex, err := storage.NewQdrantIndex(ctx, cfg.Store.QdrantHost, cfg.Store.QdrantPort, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		index = qdrantIndex
	case "memory", "":
		index = storage.NewMemory(cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	backend, err := embedding.NewOpenAIBackend(cfg.Embedding.Model, cfg.Embedding.Dimensions)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("create embedding backend: %w", err)
	}

	generator, err := embedding.NewGenerator(backend, embedding.Config{
		ModelID:    cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	}, slog.Default())
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("create embedding generator: %w", err)
	}

	chunking := splitter.Config{
		MaxTokens:          cfg.Chunking.MaxTokens,
		OverlapTokens:      cfg.Chunking.OverlapTokens,
		PreserveParagraphs: cfg.Chunking.PreserveParagraphs,
		SplitByProblems:    cfg.Chunking.SplitByProblems,
		MarkdownSections:   cfg.Chunking.MarkdownSections,
	}

	coordinator, err := indexer.NewCoordinator(index, generator, chunking, slog.Default())
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	engine := search.NewEngine(index, generator, search.Config{
		KeywordFallback: cfg.Search.KeywordFallback,
	}, slog.Default())

	return &components{
		index:       index,
		generator:   generator,
		coordinator: coordinator,
		engine:      engine,
		chunking:    chunking,
	}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server (stdio by default, HTTP with SERVER_MODE=http)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer cancel()

		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.index.Close()

		server := mcpserver.NewServer(&mcpserver.Config{
			Index:       c.index,
			Coordinator: c.coordinator,
			Engine:      c.engine,
			Chunking:    c.chunking,
		})

		mux := http.NewServeMux()
		mux.HandleFunc("/health", mcpserver.NewHealthHandler(healthChecker(c.index)))
		mux.Handle("/mcp", server.HTTPHandler())

		addr := "0.0.0.0:" + cfg.Server.Port
		if cfg.Server.HTTP {
			log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
			return http.ListenAndServe(addr, mux)
		}

		// Stdio mode, with the health endpoint in the background for
		// local checks.
		go func() {
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting studyindex MCP server (stdio mode)...")
		return server.Run(ctx)
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a document's extracted text and wait for completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.index.Close()

		id, _ := cmd.Flags().GetString("id")
		file, _ := cmd.Flags().GetString("file")
		tenant, _ := cmd.Flags().GetString("tenant")
		problems, _ := cmd.Flags().GetBool("problems")
		markdown, _ := cmd.Flags().GetBool("markdown")

		text, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read document text: %w", err)
		}

		chunking := c.chunking
		chunking.SplitByProblems = problems
		chunking.MarkdownSections = markdown

		meta := indexer.DocumentMeta{
			Filename:   file,
			Size:       int64(len(text)),
			StorageRef: file,
			Chunking:   &chunking,
		}
		meta.Subject, _ = cmd.Flags().GetString("subject")
		meta.Grade, _ = cmd.Flags().GetString("grade")
		meta.Unit, _ = cmd.Flags().GetString("unit")
		meta.Type, _ = cmd.Flags().GetString("type")
		meta.Year, _ = cmd.Flags().GetInt("year")

		start := time.Now()
		if _, err := c.coordinator.IndexDocument(ctx, id, string(text), tenant, meta); err != nil {
			return fmt.Errorf("start indexing: %w", err)
		}

		progress, err := c.coordinator.WaitForCompletion(ctx, id)
		if err != nil {
			return err
		}
		if progress.Status != indexer.StatusCompleted {
			return fmt.Errorf("indexing ended in %s: %s", progress.Status, progress.Error)
		}

		fmt.Printf("Indexed %s\n", id)
		fmt.Printf("  Chunks: %d\n", progress.TotalChunks)
		fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.index.Close()

		tenant, _ := cmd.Flags().GetString("tenant")
		topK, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		hybrid, _ := cmd.Flags().GetBool("hybrid")
		includePublic, _ := cmd.Flags().GetBool("public")

		resp, err := c.engine.Search(ctx, args[0], tenant, search.Options{
			TopK:          topK,
			Threshold:     threshold,
			UseHybrid:     hybrid,
			IncludePublic: includePublic,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%d results (%d chunks considered, %dms)\n",
			len(resp.Results), resp.TotalChunksConsidered, resp.SearchTimeMs)
		for i, r := range resp.Results {
			fmt.Printf("\n%d. doc=%s chunk=%d similarity=%.3f", i+1, r.DocumentID, r.ChunkIndex, r.Similarity)
			if hybrid {
				fmt.Printf(" keyword=%.3f combined=%.3f", r.KeywordScore, r.CombinedScore)
			}
			fmt.Printf("\n%s\n", preview(r.Content, 200))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a document and all of its chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.index.Close()

		id, _ := cmd.Flags().GetString("id")
		if err := c.coordinator.DeleteDocument(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", id)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show document and chunk counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		c, err := buildComponents(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.index.Close()

		tenant, _ := cmd.Flags().GetString("tenant")
		stats, err := c.index.Stats(ctx, tenant)
		if err != nil {
			return err
		}
		fmt.Printf("Documents: %d\n", stats.Documents)
		fmt.Printf("Chunks: %d\n", stats.Chunks)
		return nil
	},
}

// healthChecker adapts any store to the health endpoint; stores without a
// connectivity probe report healthy.
func healthChecker(index storage.Index) mcpserver.HealthChecker {
	if hc, ok := index.(mcpserver.HealthChecker); ok {
		return hc
	}
	return alwaysHealthy{}
}

type alwaysHealthy struct{}

func (alwaysHealthy) Health(ctx context.Context) error { return nil }

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
