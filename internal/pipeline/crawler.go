package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// minPageTextChars is the threshold below which a fetched page is treated as
// having no usable content. Its links are still followed.
const minPageTextChars = 50

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CrawlConfig controls a crawl run.
type CrawlConfig struct {
	SeedURLs       []string
	AllowedDomains []string
	MaxDepth       int
	MaxPages       int
	Delay          time.Duration
	UserAgent      string
}

// CrawledPage is one fetched page with enough text to be worth chunking.
type CrawledPage struct {
	URL   string
	Title string
	Text  string
	Depth int
}

// Crawler walks the county sites breadth-first from the seed URLs, one
// depth level at a time, until the depth or page budget runs out.
type Crawler struct {
	cfg CrawlConfig
}

func NewCrawler(cfg CrawlConfig) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Crawler{cfg: cfg}
}

// Run executes the crawl and returns the content-bearing pages in the order
// they were fetched. A canceled context stops the crawl and returns what was
// gathered so far alongside the context error.
func (c *Crawler) Run(ctx context.Context) ([]*CrawledPage, error) {
	collector := colly.NewCollector(
		colly.AllowedDomains(c.cfg.AllowedDomains...),
		colly.UserAgent(c.cfg.UserAgent),
	)
	if err := collector.Limit(&colly.LimitRule{DomainGlob: "*", Delay: c.cfg.Delay}); err != nil {
		return nil, err
	}

	var (
		pages   []*CrawledPage
		fetched int
		depth   int
		next    []string
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || fetched >= c.cfg.MaxPages {
			r.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		fetched++

		content, err := ExtractContent(bytes.NewReader(r.Body), c.cfg.AllowedDomains)
		if err != nil {
			log.Printf("crawl: failed to parse %s: %v", r.Request.URL, err)
			return
		}

		for _, link := range content.Links {
			if resolved := normalizeURL(r.Request.AbsoluteURL(link)); resolved != "" {
				next = append(next, resolved)
			}
		}

		if len(strings.TrimSpace(content.Text)) < minPageTextChars {
			log.Printf("crawl: skipping %s (too little content)", r.Request.URL)
			return
		}

		pages = append(pages, &CrawledPage{
			URL:   normalizeURL(r.Request.URL.String()),
			Title: content.Title,
			Text:  content.Text,
			Depth: depth,
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		log.Printf("crawl: request failed for %s: %v", r.Request.URL, err)
	})

	frontier := make([]string, 0, len(c.cfg.SeedURLs))
	for _, seed := range c.cfg.SeedURLs {
		if u := normalizeURL(seed); u != "" {
			frontier = append(frontier, u)
		}
	}

	for depth = 0; depth <= c.cfg.MaxDepth && len(frontier) > 0 && fetched < c.cfg.MaxPages; depth++ {
		next = nil
		for _, u := range frontier {
			if ctx.Err() != nil || fetched >= c.cfg.MaxPages {
				break
			}
			err := collector.Visit(u)
			if err != nil && !errors.Is(err, colly.ErrAlreadyVisited) && !errors.Is(err, colly.ErrForbiddenDomain) {
				log.Printf("crawl: skipping %s: %v", u, err)
			}
		}
		frontier = next
	}

	log.Printf("crawl: fetched %d pages, kept %d with content", fetched, len(pages))
	return pages, ctx.Err()
}

// normalizeURL strips the query and fragment and any trailing slash so the
// same page is never visited twice under cosmetic URL variants.
func normalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parsed.Fragment = ""
	parsed.RawQuery = ""
	return strings.TrimRight(parsed.String(), "/")
}
