package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/civicworks/countychat/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// maxKeywordTerms caps the number of OR-combined ILIKE slots in a keyword
// search. Part of the interface contract, not an implementation detail.
const maxKeywordTerms = 5

// keywordMatchSimilarity is the fixed neutral score assigned to keyword
// fallback results; keyword matching carries no ranking signal beyond
// match/no-match.
const keywordMatchSimilarity = 0.5

// ChunkRepository handles persistence and search of content chunks.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// VectorSearch returns the chunks nearest to the query embedding by cosine
// distance, restricted to chunks that have an embedding and, when a
// department is supplied, to that department. Results are ordered by
// ascending distance; similarity is reported as 1 - distance.
func (r *ChunkRepository) VectorSearch(ctx context.Context, embedding []float32, departmentID string, limit int) ([]*service.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT id, title, content, source_url, department_id, chunk_index,
		       1 - (embedding <=> $1::vector) AS similarity
		FROM content_chunks
		WHERE embedding IS NOT NULL`
	args := []any{vec}

	if departmentID != "" {
		query += fmt.Sprintf(" AND department_id = $%d", len(args)+1)
		args = append(args, departmentID)
	}

	query += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.RetrievedChunk, 0, limit)
	for rows.Next() {
		var chunk service.RetrievedChunk
		var deptID *string
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Content, &chunk.SourceURL, &deptID, &chunk.ChunkIndex, &chunk.Similarity); err != nil {
			return nil, err
		}
		if deptID != nil {
			chunk.DepartmentID = *deptID
		}
		results = append(results, &chunk)
	}

	return results, rows.Err()
}

// KeywordSearch matches chunks whose content contains any of the given terms
// (case-insensitive substring, OR-combined). At most five terms are used;
// extra terms are dropped. Every result carries the fixed neutral similarity.
func (r *ChunkRepository) KeywordSearch(ctx context.Context, terms []string, departmentID string, limit int) ([]*service.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 5
	}
	if len(terms) > maxKeywordTerms {
		terms = terms[:maxKeywordTerms]
	}
	if len(terms) == 0 {
		return []*service.RetrievedChunk{}, nil
	}

	conditions := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+2)
	for _, term := range terms {
		conditions = append(conditions, fmt.Sprintf("content ILIKE $%d", len(args)+1))
		args = append(args, "%"+term+"%")
	}

	query := `
		SELECT id, title, content, source_url, department_id, chunk_index
		FROM content_chunks
		WHERE (` + strings.Join(conditions, " OR ") + `)`

	if departmentID != "" {
		query += fmt.Sprintf(" AND department_id = $%d", len(args)+1)
		args = append(args, departmentID)
	}

	query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.RetrievedChunk, 0, limit)
	for rows.Next() {
		var chunk service.RetrievedChunk
		var deptID *string
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Content, &chunk.SourceURL, &deptID, &chunk.ChunkIndex); err != nil {
			return nil, err
		}
		if deptID != nil {
			chunk.DepartmentID = *deptID
		}
		chunk.Similarity = keywordMatchSimilarity
		results = append(results, &chunk)
	}

	return results, rows.Err()
}

// ReplaceAll wipes the chunk collection and inserts the given chunks in a
// single transaction. Every pipeline run replaces the whole collection, so
// chunk IDs never survive across runs.
func (r *ChunkRepository) ReplaceAll(ctx context.Context, chunks []domain.ContentChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE content_chunks`); err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var embedding any
		if c.HasEmbedding() {
			embedding = pgvector.NewVector(c.Embedding)
		}

		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO content_chunks
				(department_id, source_url, title, content, embedding, chunk_index, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			nullableString(c.DepartmentID),
			c.SourceURL,
			c.Title,
			c.Content,
			embedding,
			c.ChunkIndex,
			metadata,
			createdAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM content_chunks`).Scan(&count)
	return count, err
}
