package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentPage(title string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><main>")
	b.WriteString("<p>This page carries enough meaningful county service content to pass the minimum length check.</p>")
	for _, link := range links {
		b.WriteString(`<a href="` + link + `">More information</a>`)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

func stubPage(title string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body><main>")
	b.WriteString("<p>Nearly empty.</p>")
	for _, link := range links {
		b.WriteString(`<a href="` + link + `">More information</a>`)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

func newCrawlServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func testCrawlConfig(server *httptest.Server) CrawlConfig {
	return CrawlConfig{
		SeedURLs:       []string{server.URL + "/"},
		AllowedDomains: []string{"127.0.0.1"},
		MaxDepth:       3,
		MaxPages:       200,
		Delay:          time.Millisecond,
	}
}

func crawledURLs(server *httptest.Server, pages []*CrawledPage) []string {
	urls := make([]string, 0, len(pages))
	for _, page := range pages {
		urls = append(urls, strings.TrimPrefix(page.URL, server.URL))
	}
	return urls
}

func TestCrawlBreadthFirst(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/":  contentPage("Home", "/a", "/b"),
		"/a": contentPage("Page A", "/c"),
		"/b": contentPage("Page B"),
		"/c": contentPage("Page C"),
	})

	cfg := testCrawlConfig(server)
	pages, err := NewCrawler(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"", "/a", "/b", "/c"}, crawledURLs(server, pages))
	assert.Equal(t, 0, pages[0].Depth)
	assert.Equal(t, 1, pages[1].Depth)
	assert.Equal(t, 2, pages[3].Depth)
}

func TestCrawlMaxDepth(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/":  contentPage("Home", "/a", "/b"),
		"/a": contentPage("Page A", "/c"),
		"/b": contentPage("Page B"),
		"/c": contentPage("Page C"),
	})

	cfg := testCrawlConfig(server)
	cfg.MaxDepth = 1
	pages, err := NewCrawler(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"", "/a", "/b"}, crawledURLs(server, pages))
}

func TestCrawlSeedsOnly(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/":  contentPage("Home", "/a"),
		"/a": contentPage("Page A"),
	})

	cfg := testCrawlConfig(server)
	cfg.MaxDepth = 0
	pages, err := NewCrawler(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, crawledURLs(server, pages))
}

func TestCrawlPageBudget(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/":  contentPage("Home", "/a", "/b", "/c"),
		"/a": contentPage("Page A"),
		"/b": contentPage("Page B"),
		"/c": contentPage("Page C"),
	})

	cfg := testCrawlConfig(server)
	cfg.MaxPages = 2
	pages, err := NewCrawler(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestCrawlSkipsThinPagesButFollowsLinks(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/":  stubPage("Hub", "/a"),
		"/a": contentPage("Page A"),
	})

	cfg := testCrawlConfig(server)
	pages, err := NewCrawler(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, crawledURLs(server, pages))
}

func TestCrawlDeduplicatesURLVariants(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/":  contentPage("Home", "/a", "/a/", "/a?tab=1", "/a#section"),
		"/a": contentPage("Page A"),
	})

	cfg := testCrawlConfig(server)
	pages, err := NewCrawler(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"", "/a"}, crawledURLs(server, pages))
}

func TestCrawlCanceledContext(t *testing.T) {
	server := newCrawlServer(t, map[string]string{
		"/": contentPage("Home"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages, err := NewCrawler(testCrawlConfig(server)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pages)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.gov/page/", "https://example.gov/page"},
		{"https://example.gov/page?tab=1", "https://example.gov/page"},
		{"https://example.gov/page#top", "https://example.gov/page"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeURL(tt.in))
	}
}
