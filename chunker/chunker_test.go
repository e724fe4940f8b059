package chunker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchunker/types"
)

func words(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("w%d", i)
	}
	return tokens
}

type bounds struct{ start, end int }

func chunkBounds(chunks []types.Chunk) []bounds {
	out := make([]bounds, len(chunks))
	for i, c := range chunks {
		out[i] = bounds{c.StartTokenIndex, c.EndTokenIndex}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"only whitespace", " \n\t  ", []string{}},
		{"simple", "hello world", []string{"hello", "world"}},
		{"runs of whitespace", "  a \n\n b\t\tc  ", []string{"a", "b", "c"}},
		{"punctuation stays attached", "Hello, world! (yes)", []string{"Hello,", "world!", "(yes)"}},
		{"no normalization", "Ünïcode CASE", []string{"Ünïcode", "CASE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			assert.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}

func TestDetokenizeIsLossy(t *testing.T) {
	text := "line one\n\nline   two"
	assert.Equal(t, "line one line two", Detokenize(Tokenize(text)))
	assert.Equal(t, "", Detokenize(nil))
}

func TestSplit_Scenarios(t *testing.T) {
	t.Run("1000 tokens size 400 overlap 25", func(t *testing.T) {
		chunks := Split(words(1000), 400, 25)
		require.Len(t, chunks, 3)
		assert.Equal(t, []bounds{{0, 399}, {375, 774}, {750, 999}}, chunkBounds(chunks))
		assert.True(t, chunks[2].IsLastChunk)
		assert.Equal(t, 250, chunks[2].TokenCount)
	})

	t.Run("fewer tokens than chunk size", func(t *testing.T) {
		chunks := Split(words(10), 400, 25)
		require.Len(t, chunks, 1)
		assert.Equal(t, bounds{0, 9}, chunkBounds(chunks)[0])
		assert.True(t, chunks[0].IsLastChunk)
		assert.Equal(t, 10, chunks[0].TokenCount)
	})

	t.Run("overlap equal to chunk size", func(t *testing.T) {
		chunks := Split(words(50), 10, 10)
		require.Len(t, chunks, 5)
		assert.Equal(t, []bounds{{0, 9}, {10, 19}, {20, 29}, {30, 39}, {40, 49}}, chunkBounds(chunks))
	})

	t.Run("empty tokens", func(t *testing.T) {
		chunks := Split(nil, 400, 25)
		assert.NotNil(t, chunks)
		assert.Empty(t, chunks)
	})
}

func TestSplit_ChunkText(t *testing.T) {
	chunks := Split([]string{"a", "b", "c", "d", "e"}, 3, 1)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a b c", chunks[0].Text)
	assert.Equal(t, "c d e", chunks[1].Text)
}

func TestSplit_Properties(t *testing.T) {
	sizes := []int{1, 2, 3, 7, 10, 400}
	overlaps := []int{0, 1, 2, 5, 10, 25, 500}
	lengths := []int{0, 1, 2, 9, 10, 11, 57, 1000}

	for _, size := range sizes {
		for _, overlap := range overlaps {
			for _, n := range lengths {
				name := fmt.Sprintf("size=%d/overlap=%d/n=%d", size, overlap, n)
				t.Run(name, func(t *testing.T) {
					chunks := Split(words(n), size, overlap)
					if n == 0 {
						assert.Empty(t, chunks)
						return
					}
					require.NotEmpty(t, chunks)

					first, last := chunks[0], chunks[len(chunks)-1]
					assert.Equal(t, 0, first.StartTokenIndex)
					assert.Equal(t, n-1, last.EndTokenIndex)

					lastCount := 0
					for i, c := range chunks {
						assert.Equal(t, i+1, c.ID, "ids must be contiguous from 1")
						assert.LessOrEqual(t, c.StartTokenIndex, c.EndTokenIndex)
						assert.Equal(t, c.EndTokenIndex-c.StartTokenIndex+1, c.TokenCount)
						if c.IsLastChunk {
							lastCount++
						}
						if i < len(chunks)-1 {
							assert.Equal(t, size, c.TokenCount)
							next := chunks[i+1]
							assert.Greater(t, next.StartTokenIndex, c.StartTokenIndex)
							if overlap < size {
								assert.Equal(t, overlap, c.EndTokenIndex-next.StartTokenIndex+1)
							} else {
								assert.Equal(t, c.EndTokenIndex+1, next.StartTokenIndex)
							}
						} else {
							assert.GreaterOrEqual(t, c.TokenCount, 1)
							assert.LessOrEqual(t, c.TokenCount, size)
						}
					}
					assert.Equal(t, 1, lastCount)
					assert.True(t, last.IsLastChunk)

					if overlap >= size {
						assert.LessOrEqual(t, len(chunks), (n+size-1)/size)
					}
				})
			}
		}
	}
}

func TestSplit_ClampsOutOfContractSizes(t *testing.T) {
	chunks := Split(words(3), 0, -4)
	require.Len(t, chunks, 3)
	assert.Equal(t, []bounds{{0, 0}, {1, 1}, {2, 2}}, chunkBounds(chunks))
}

func TestChunkText(t *testing.T) {
	chunks, total := ChunkText("one two  three\nfour", types.ChunkConfig{ChunkSize: 2, OverlapSize: 0})
	assert.Equal(t, 4, total)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two", chunks[0].Text)
	assert.Equal(t, "three four", chunks[1].Text)

	chunks, total = ChunkText("", types.ChunkConfig{ChunkSize: DefaultChunkSize, OverlapSize: DefaultOverlapSize})
	assert.Zero(t, total)
	assert.Empty(t, chunks)
}

func BenchmarkSplit(b *testing.B) {
	tokens := words(100_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Split(tokens, DefaultChunkSize, DefaultOverlapSize)
	}
}
