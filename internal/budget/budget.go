// Package budget provides token budget estimation and context trimming for
// the query pipeline. Because the pipeline supports multiple LLM backends
// with different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the prompt scaffolding and the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimBlocks drops document blocks from the tail until the estimated total of
// all remaining blocks fits within maxTokens. Blocks arrive ordered by
// retrieval score, best first, so the tail holds the least relevant material.
//
// The first block is never dropped: a retrieval that found anything at all
// must contribute at least its top hit, even if that alone exceeds the
// budget (the per-block character cap bounds the damage).
func TrimBlocks(blocks []string, maxTokens int) []string {
	if len(blocks) <= 1 {
		return blocks
	}

	total := 0
	for _, b := range blocks {
		total += Estimate(b)
	}
	for len(blocks) > 1 && total > maxTokens {
		total -= Estimate(blocks[len(blocks)-1])
		blocks = blocks[:len(blocks)-1]
	}
	return blocks
}
