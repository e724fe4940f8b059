package agent

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"docchunker/types"
)

// ValidateSelection rejects a question-answering turn with no chunks.
func ValidateSelection(ids []int) error {
	if len(ids) == 0 {
		return types.ErrEmptySelection
	}
	return nil
}

// BuildContext renders the chunks of doc whose ids are selected, in ascending
// chunk id order. The order of ids does not matter and unknown ids are ignored.
func BuildContext(doc *types.Document, ids []int) (string, []types.Chunk, error) {
	if err := ValidateSelection(ids); err != nil {
		return "", nil, err
	}

	selected := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}

	chunks := make([]types.Chunk, 0, len(selected))
	for _, c := range doc.Chunks {
		if _, ok := selected[c.ID]; ok {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return "", nil, types.ErrEmptySelection
	}
	return renderContext(chunks), chunks, nil
}

// BuildContextFromChunks renders chunk references carried by a request when no
// stored document backs them. Duplicated ids keep their first occurrence.
func BuildContextFromChunks(refs []types.SelectedChunk) (string, []types.Chunk, error) {
	if len(refs) == 0 {
		return "", nil, types.ErrEmptySelection
	}

	seen := make(map[int]struct{}, len(refs))
	chunks := make([]types.Chunk, 0, len(refs))
	for _, r := range refs {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		chunks = append(chunks, types.Chunk{ID: r.ID, Text: r.Text})
	}
	slices.SortStableFunc(chunks, func(a, b types.Chunk) int { return cmp.Compare(a.ID, b.ID) })

	return renderContext(chunks), chunks, nil
}

func renderContext(chunks []types.Chunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[Chunk %d]: %s", c.ID, c.Text)
	}
	return strings.Join(blocks, "\n\n")
}
