// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
}

// StoreConfig selects and configures the chunk store backend.
type StoreConfig struct {
	// Backend is "qdrant" or "memory".
	Backend    string `yaml:"backend"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// ChunkingConfig sets the default splitting behavior.
type ChunkingConfig struct {
	MaxTokens          int  `yaml:"max_tokens"`
	OverlapTokens      int  `yaml:"overlap_tokens"`
	PreserveParagraphs bool `yaml:"preserve_paragraphs"`
	SplitByProblems    bool `yaml:"split_by_problems"`
	MarkdownSections   bool `yaml:"markdown_sections"`
}

// SearchConfig tunes the search engine.
type SearchConfig struct {
	Threshold       float64 `yaml:"threshold"`
	KeywordFallback bool    `yaml:"keyword_fallback"`
}

// ServerConfig configures the serving surface.
type ServerConfig struct {
	Port string `yaml:"port"`
	// HTTP serves MCP over streamable HTTP instead of stdio.
	HTTP bool `yaml:"http"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    "memory",
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Embedding: EmbeddingConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  100,
		},
		Chunking: ChunkingConfig{
			MaxTokens:          512,
			OverlapTokens:      50,
			PreserveParagraphs: true,
		},
		Search: SearchConfig{
			Threshold: 0.7,
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads the YAML file at path (skipped when empty) and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.Store.QdrantHost = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Store.QdrantPort = port
		}
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("EMBEDDING_DIMENSIONS"); v != "" {
		if dims, err := strconv.Atoi(v); err == nil {
			c.Embedding.Dimensions = dims
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("SERVER_MODE"); v == "http" || v == "true" {
		c.Server.HTTP = true
	}
}
