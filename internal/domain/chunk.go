package domain

import (
	"fmt"
	"time"
)

// ContentChunk represents a retrievable segment of crawled page text.
// Chunks are created by the offline pipeline and are immutable once stored.
// The whole collection is replaced on every pipeline run, so chunk IDs must
// not be cached across runs.
type ContentChunk struct {
	ID           string
	DepartmentID string
	SourceURL    string
	Title        string
	Content      string
	Embedding    []float32
	ChunkIndex   int
	Metadata     map[string]any
	CreatedAt    time.Time
}

// HasEmbedding returns true if the chunk carries a dense vector.
func (c *ContentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ValidateContentChunk validates a ContentChunk instance
func ValidateContentChunk(c *ContentChunk) error {
	if c == nil {
		return fmt.Errorf("content chunk cannot be nil")
	}

	if c.SourceURL == "" {
		return fmt.Errorf("content chunk SourceURL is required")
	}

	if c.Content == "" {
		return fmt.Errorf("content chunk Content is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("content chunk ChunkIndex cannot be negative")
	}

	return nil
}
