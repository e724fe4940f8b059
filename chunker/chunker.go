// Package chunker splits extracted document text into overlapping,
// fixed-size token windows.
//
// A token is a maximal run of non-whitespace characters. Chunk text is the
// window's tokens joined by single spaces, so original spacing and line
// breaks are not preserved.
package chunker

import (
	"strings"

	"docchunker/types"
)

const (
	DefaultChunkSize   = 400
	DefaultOverlapSize = 25
)

// Tokenize splits text on runs of whitespace. Punctuation stays attached to
// the neighbouring characters and no normalization is applied.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Detokenize joins tokens with a single space. It is not the inverse of Tokenize.
func Detokenize(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Split produces the ordered chunk windows for tokens.
//
// Each window holds at most chunkSize tokens and the next window starts
// overlapSize tokens before the previous one ended. When that start would not
// move past the previous start (overlapSize >= the window just produced), the
// next window begins right after the previous one instead. Production stops at
// the first window that reaches the final token.
func Split(tokens []string, chunkSize, overlapSize int) []types.Chunk {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if overlapSize < 0 {
		overlapSize = 0
	}

	chunks := make([]types.Chunk, 0, estimateCount(len(tokens), chunkSize, overlapSize))
	if len(tokens) == 0 {
		return chunks
	}

	start := 0
	chunkNumber := 1
	for start < len(tokens) {
		end := min(start+chunkSize, len(tokens))
		isLast := end >= len(tokens)

		chunks = append(chunks, types.Chunk{
			ID:              chunkNumber,
			Text:            Detokenize(tokens[start:end]),
			TokenCount:      end - start,
			StartTokenIndex: start,
			EndTokenIndex:   end - 1,
			IsLastChunk:     isLast,
		})
		if isLast {
			break
		}

		next := end - overlapSize
		if next <= start {
			next = end
		}
		start = next
		chunkNumber++
	}
	return chunks
}

// ChunkText tokenizes text and splits it with cfg. It also returns the total
// token count of text.
func ChunkText(text string, cfg types.ChunkConfig) ([]types.Chunk, int) {
	tokens := Tokenize(text)
	return Split(tokens, cfg.ChunkSize, cfg.OverlapSize), len(tokens)
}

func estimateCount(n, size, overlap int) int {
	if n == 0 {
		return 0
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}
	if n <= size {
		return 1
	}
	return (n-size+step-1)/step + 1
}
