package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"docchunker/types"
)

// TokenCounter measures text in model tokens.
type TokenCounter func(text string) int

// NewTokenCounter loads the BPE encoding of model.
func NewTokenCounter(model string) (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load encoding for %s: %w", model, err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// Budget rejects prompts larger than Max tokens. A zero Max or a nil Count
// disables the check.
type Budget struct {
	Max   int
	Count TokenCounter
}

// Check returns the prompt size in tokens, or -1 when it was not measured.
func (b Budget) Check(p Prompt) (int, error) {
	if b.Count == nil {
		return -1, nil
	}
	n := b.Count(p.String())
	if b.Max > 0 && n > b.Max {
		return n, fmt.Errorf("%w: %d tokens, limit %d", types.ErrPromptTooLarge, n, b.Max)
	}
	return n, nil
}
