// Package pipeline implements the offline content pipeline: crawl the county
// sites, extract and chunk page text, embed the chunks, and replace the
// knowledge base in one shot.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/civicworks/countychat/internal/service"
	"github.com/civicworks/countychat/internal/telemetry"
)

// ChunkWriter replaces the stored chunk collection atomically.
type ChunkWriter interface {
	ReplaceAll(ctx context.Context, chunks []domain.ContentChunk) error
}

// Embedder turns chunk text into a vector. A nil embedder leaves chunks
// unembedded; they are then only reachable through keyword search.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Result summarizes a pipeline run.
type Result struct {
	PagesCrawled int
	ChunksStored int
	Embedded     int
}

// Pipeline wires the crawl, chunk, embed, and load stages together.
type Pipeline struct {
	crawler     *Crawler
	chunker     *Chunker
	embedder    Embedder
	departments *service.DepartmentCache
	store       ChunkWriter
}

func New(crawler *Crawler, chunker *Chunker, embedder Embedder, departments *service.DepartmentCache, store ChunkWriter) *Pipeline {
	return &Pipeline{
		crawler:     crawler,
		chunker:     chunker,
		embedder:    embedder,
		departments: departments,
		store:       store,
	}
}

// Run executes a full pipeline pass. A crawl that produces zero chunks is a
// hard error: the existing knowledge base is left untouched rather than
// being replaced with nothing.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.StartTransaction(ctx, "pipeline.run", "pipeline")
	defer span.End()

	pages, err := p.crawler.Run(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("crawl failed: %w", err)
	}

	chunks := p.buildChunks(pages)
	if len(chunks) == 0 {
		err := fmt.Errorf("crawl produced no content; keeping existing knowledge base")
		span.SetError(err)
		return nil, err
	}

	embedded := p.embedChunks(ctx, chunks)

	if err := p.store.ReplaceAll(ctx, chunks); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	result := &Result{
		PagesCrawled: len(pages),
		ChunksStored: len(chunks),
		Embedded:     embedded,
	}
	log.Printf("pipeline: stored %d chunks from %d pages (%d embedded)", result.ChunksStored, result.PagesCrawled, result.Embedded)
	return result, nil
}

// buildChunks classifies each page to a department and splits its text.
// Pages that classify to an unknown department fall back to general.
func (p *Pipeline) buildChunks(pages []*CrawledPage) []domain.ContentChunk {
	var chunks []domain.ContentChunk
	for _, page := range pages {
		slug := ClassifyDepartment(page.URL)
		dept, ok := p.departments.BySlug(slug)
		if !ok {
			dept = p.departments.General()
		}

		departmentID := ""
		if dept != nil {
			departmentID = dept.ID
		}

		for i, text := range p.chunker.Split(page.Text, page.Title) {
			chunks = append(chunks, domain.ContentChunk{
				DepartmentID: departmentID,
				SourceURL:    page.URL,
				Title:        page.Title,
				Content:      text,
				ChunkIndex:   i,
				Metadata: map[string]any{
					"page_title": page.Title,
					"depth":      page.Depth,
				},
			})
		}
	}
	return chunks
}

// embedChunks fills in embeddings where possible. Individual embedding
// failures leave that chunk unembedded and do not abort the run.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []domain.ContentChunk) int {
	if p.embedder == nil {
		log.Printf("pipeline: no embedder configured, storing chunks without embeddings")
		return 0
	}

	embedded := 0
	for i := range chunks {
		embedding, err := p.embedder.GenerateEmbedding(ctx, chunks[i].Content)
		if err != nil {
			log.Printf("pipeline: embedding failed for chunk %d of %s: %v", chunks[i].ChunkIndex, chunks[i].SourceURL, err)
			continue
		}
		chunks[i].Embedding = embedding
		embedded++
	}
	return embedded
}
