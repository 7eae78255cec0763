package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkMaxChars = 2000
	defaultChunkOverlap  = 200
)

var sectionBoundary = regexp.MustCompile(`\n\n+`)

// Chunker splits extracted page text into overlapping chunks along section
// boundaries.
type Chunker struct {
	maxChars int
	overlap  int
}

func NewChunker(maxChars, overlap int) *Chunker {
	if maxChars <= 0 {
		maxChars = defaultChunkMaxChars
	}
	if overlap <= 0 {
		overlap = defaultChunkOverlap
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}
}

// Split breaks text into chunks at blank-line boundaries. The page title
// seeds the first chunk so every chunk cluster stays attributable to its
// page. A chunk closes when the next section would push it past maxChars;
// the tail of the closed chunk carries over as overlap. A single section
// larger than maxChars is never split and passes through whole.
func (c *Chunker) Split(text, title string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sections := sectionBoundary.Split(text, -1)

	var chunks []string
	current := ""
	if title != "" {
		current = title + "\n\n"
	}

	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		if len(current)+len(section) > c.maxChars && strings.TrimSpace(current) != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = c.overlapTail(current) + "\n" + section
		} else {
			current += "\n" + section
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// overlapTail returns the last overlap bytes of a chunk, aligned to a rune
// boundary. Chunks no longer than the overlap contribute nothing.
func (c *Chunker) overlapTail(chunk string) string {
	if len(chunk) <= c.overlap {
		return ""
	}
	cut := len(chunk) - c.overlap
	for cut < len(chunk) && !utf8.RuneStart(chunk[cut]) {
		cut++
	}
	return chunk[cut:]
}
