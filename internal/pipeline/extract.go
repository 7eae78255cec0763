package pipeline

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// minTextFragment is the minimum length for an element's text to count as
// content; shorter fragments are navigation noise.
const minTextFragment = 10

// PageContent is what the extractor pulls out of one HTML page.
type PageContent struct {
	Title string
	Text  string
	Links []string
}

// ExtractContent parses an HTML page and returns its title, the text of its
// main content area with headings marked, and the internal links it found.
// Links are returned as-is (possibly relative); the crawler resolves them.
func ExtractContent(body io.Reader, internalDomains []string) (*PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	main := doc.Find("main").First()
	if main.Length() == 0 {
		main = doc.Find("article").First()
	}
	if main.Length() == 0 {
		main = doc.Find(`div[role="main"]`).First()
	}
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}
	if main.Length() == 0 {
		main = doc.Selection
	}

	var parts []string
	main.Find("h1, h2, h3, h4, p, li, td").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) <= minTextFragment {
			return
		}
		if strings.HasPrefix(goquery.NodeName(sel), "h") {
			parts = append(parts, "\n## "+text+"\n")
		} else {
			parts = append(parts, text)
		}
	})

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "/") || containsAnyDomain(href, internalDomains) {
			links = append(links, href)
		}
	})

	return &PageContent{
		Title: title,
		Text:  strings.Join(parts, "\n"),
		Links: links,
	}, nil
}

func containsAnyDomain(href string, domains []string) bool {
	for _, domain := range domains {
		if strings.Contains(href, domain) {
			return true
		}
	}
	return false
}
