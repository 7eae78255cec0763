package service

import (
	"context"
	"log"
	"strings"

	"github.com/civicworks/countychat/internal/telemetry"
)

// maxKeywordTerms caps how many query words feed the keyword fallback search.
const maxKeywordTerms = 5

// RetrievedChunk is a knowledge-base chunk returned by search, scored by
// similarity to the query.
type RetrievedChunk struct {
	ID           string
	Title        string
	Content      string
	SourceURL    string
	DepartmentID string
	ChunkIndex   int
	Similarity   float32
}

// ChunkSearcher defines the repository interface for chunk search.
type ChunkSearcher interface {
	VectorSearch(ctx context.Context, embedding []float32, departmentID string, limit int) ([]*RetrievedChunk, error)
	KeywordSearch(ctx context.Context, terms []string, departmentID string, limit int) ([]*RetrievedChunk, error)
}

// Embedder defines the interface for turning a query into a vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrievalService finds the chunks most relevant to a user question.
// Vector search is preferred; keyword search is the fallback when no
// embedder is configured, embedding fails, or vector search comes back empty.
type RetrievalService struct {
	chunks   ChunkSearcher
	embedder Embedder
	topK     int
}

// NewRetrievalService creates a retrieval service. embedder may be nil, in
// which case every query goes straight to keyword search.
func NewRetrievalService(chunks ChunkSearcher, embedder Embedder, topK int) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{
		chunks:   chunks,
		embedder: embedder,
		topK:     topK,
	}
}

// Retrieve returns up to topK chunks relevant to the query, restricted to the
// given department when departmentID is non-empty. An empty result is normal
// and means the answer will not be grounded.
func (s *RetrievalService) Retrieve(ctx context.Context, query, departmentID string) ([]*RetrievedChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return []*RetrievedChunk{}, nil
	}

	if s.embedder != nil {
		embedding, err := s.embedder.GenerateEmbedding(ctx, query)
		if err != nil {
			// Embedding failure degrades to keyword search rather than
			// failing the turn.
			log.Printf("query embedding failed, falling back to keyword search: %v", err)
			telemetry.AddBreadcrumb(ctx, "retrieval", "embedding failed, keyword fallback")
		} else {
			results, err := s.chunks.VectorSearch(ctx, embedding, departmentID, s.topK)
			if err != nil {
				span.SetError(err)
				return nil, err
			}
			if len(results) > 0 {
				return results, nil
			}
		}
	}

	terms := keywordTerms(query)
	if len(terms) == 0 {
		return []*RetrievedChunk{}, nil
	}

	results, err := s.chunks.KeywordSearch(ctx, terms, departmentID, s.topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}

// keywordTerms extracts lowercase search terms from a query: whitespace
// tokens longer than two characters, capped at maxKeywordTerms.
func keywordTerms(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, maxKeywordTerms)
	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		terms = append(terms, word)
		if len(terms) == maxKeywordTerms {
			break
		}
	}
	return terms
}
