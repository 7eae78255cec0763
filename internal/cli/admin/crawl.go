package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/civicworks/countychat/internal/config"
	"github.com/civicworks/countychat/internal/database"
	"github.com/civicworks/countychat/internal/openai"
	"github.com/civicworks/countychat/internal/pipeline"
	"github.com/civicworks/countychat/internal/repository"
	"github.com/civicworks/countychat/internal/service"
	"github.com/spf13/cobra"
)

// CrawlCmd returns the crawl command
func CrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the county sites and rebuild the knowledge base",
		Long: `Crawl the configured county websites, extract and chunk page text,
embed the chunks, and replace the stored knowledge base.

A crawl that produces no content leaves the existing knowledge base untouched.`,
		RunE: runCrawl,
	}

	cmd.Flags().Int("max-pages", 0, "Override the page budget for this run")
	cmd.Flags().Int("max-depth", -1, "Override the crawl depth for this run")
	cmd.Flags().Bool("no-embed", false, "Skip embedding generation (keyword search only)")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	departmentRepo := repository.NewDepartmentRepository(pool)
	departmentCache, err := service.LoadDepartmentCache(ctx, departmentRepo)
	if err != nil {
		return fmt.Errorf("failed to load departments: %w", err)
	}

	maxPages := cfg.CrawlMaxPages
	if override, _ := cmd.Flags().GetInt("max-pages"); override > 0 {
		maxPages = override
	}
	maxDepth := cfg.CrawlMaxDepth
	if override, _ := cmd.Flags().GetInt("max-depth"); override >= 0 {
		maxDepth = override
	}

	crawler := pipeline.NewCrawler(pipeline.CrawlConfig{
		SeedURLs:       cfg.CrawlSeedURLs,
		AllowedDomains: cfg.CrawlAllowedDomains,
		MaxDepth:       maxDepth,
		MaxPages:       maxPages,
		Delay:          cfg.CrawlDelay,
	})
	chunker := pipeline.NewChunker(cfg.ChunkMaxChars, cfg.ChunkOverlap)

	var embedder pipeline.Embedder
	noEmbed, _ := cmd.Flags().GetBool("no-embed")
	if noEmbed {
		log.Println("embedding disabled for this run")
	} else if cfg.HasOpenAI() {
		embedder = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	} else {
		log.Println("no OpenAI key configured, storing chunks without embeddings")
	}

	chunkRepo := repository.NewChunkRepository(pool)

	p := pipeline.New(crawler, chunker, embedder, departmentCache, chunkRepo)

	log.Printf("crawling %d seed URLs (depth %d, budget %d pages)", len(cfg.CrawlSeedURLs), maxDepth, maxPages)
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Crawled %d pages\n", result.PagesCrawled)
	fmt.Printf("Stored %d chunks (%d embedded)\n", result.ChunksStored, result.Embedded)
	return nil
}
