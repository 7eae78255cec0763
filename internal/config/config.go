package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	MaxTokens           int    `envconfig:"MAX_TOKENS" default:"1024"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:"demo-admin"`

	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"5"`

	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS" default:"2000"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`

	CrawlMaxDepth int           `envconfig:"CRAWL_MAX_DEPTH" default:"3"`
	CrawlMaxPages int           `envconfig:"CRAWL_MAX_PAGES" default:"200"`
	CrawlDelay    time.Duration `envconfig:"CRAWL_DELAY" default:"1s"`

	CrawlSeedURLs       []string `envconfig:"CRAWL_SEED_URLS" default:"https://tularecounty.ca.gov/department-directory,https://tularecounty.ca.gov/rma/permits,https://tularecounty.ca.gov/assessor,https://tularecounty.ca.gov/sheriff,https://tularecounty.ca.gov/fire,https://tularecounty.ca.gov/animal-services,https://tchhsa.org/eng/benefits,https://tchhsa.org/eng/public-health"`
	CrawlAllowedDomains []string `envconfig:"CRAWL_ALLOWED_DOMAINS" default:"tularecounty.ca.gov,www.tularecounty.ca.gov,tchhsa.org,www.tchhsa.org"`

	RateLimitPerSecond float64 `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
	RateLimitBurst     int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("COUNTYCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
