package service

import (
	"fmt"
	"strings"
)

// NoContextSentinel is injected into the system prompt when retrieval finds
// nothing; the prompt instructs the model to say it does not know.
const NoContextSentinel = "No relevant information found in the knowledge base."

// contextSeparator delimits source blocks in the assembled context.
const contextSeparator = "\n\n---\n\n"

// AssembleContext renders retrieved chunks into the numbered source-block
// format the system prompt expects. Order follows the retrieval ranking.
func AssembleContext(chunks []*RetrievedChunk) string {
	if len(chunks) == 0 {
		return NoContextSentinel
	}

	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		source := chunk.SourceURL
		if source == "" {
			source = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s\n(URL: %s)", i+1, chunk.Title, chunk.Content, source))
	}

	return strings.Join(blocks, contextSeparator)
}
