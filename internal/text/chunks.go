// Package text prepares input text for speech synthesis.
package text

import (
	"strings"

	"github.com/mgoltzsche/readaloud/internal/model"
)

// DefaultMaxChunkLength is the maximum input length in bytes the speech API accepts per request.
const DefaultMaxChunkLength = 4096

// Split splits the given text at whitespace into chunks of at most maxLen bytes.
// Words are joined by a single space and never split: a word longer than maxLen forms a chunk on its own.
// Joining the returned chunk texts with spaces yields the whitespace-normalized input.
func Split(input string, maxLen int) []model.Chunk {
	if maxLen < 1 {
		maxLen = 1
	}

	words := strings.Fields(input)
	chunks := make([]model.Chunk, 0, len(input)/maxLen+1)

	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, model.Chunk{
				Index: len(chunks),
				Text:  b.String(),
			})
			b.Reset()
		}
	}

	for _, word := range words {
		if b.Len() > 0 && b.Len()+1+len(word) > maxLen {
			flush()
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(word)
	}

	flush()

	return chunks
}
