// Package pipeline implements the query flow: context assembly from
// retrieval matches, score-gated mode selection, optional web-search
// augmentation, and answer generation against the configured chat model.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/skywalkers77/astro-rag/internal/budget"
	"github.com/skywalkers77/astro-rag/internal/rag"
)

const (
	// DefaultBlockCharCap is the per-document character cap applied before a
	// chunk is placed into the prompt context.
	DefaultBlockCharCap = 1500

	// truncationMarker is appended to a chunk cut at the character cap.
	truncationMarker = " …"
)

// ContextBuilder assembles retrieval matches into the prompt context block
// and the provenance list that accompanies the answer.
type ContextBuilder struct {
	// charCap is the per-document character cap.
	charCap int
	// maxTokens is the estimated token budget for the whole context block.
	maxTokens int
}

// NewContextBuilder constructs a ContextBuilder. Non-positive arguments fall
// back to DefaultBlockCharCap and budget.DefaultMaxContextTokens.
func NewContextBuilder(charCap, maxTokens int) *ContextBuilder {
	if charCap <= 0 {
		charCap = DefaultBlockCharCap
	}
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}
	return &ContextBuilder{charCap: charCap, maxTokens: maxTokens}
}

// Build renders matches into numbered document blocks and returns the joined
// context text plus a provenance entry per included block. Matches arrive
// best-first; when the token budget forces trimming, the tail is dropped and
// the provenance shrinks with it. No matches yields an empty context and an
// empty (non-nil) provenance list.
func (b *ContextBuilder) Build(matches []rag.Match) (string, []rag.ProvenanceEntry) {
	if len(matches) == 0 {
		return "", []rag.ProvenanceEntry{}
	}

	blocks := make([]string, 0, len(matches))
	for i, m := range matches {
		text := strings.TrimSpace(m.Chunk.Text)
		if len(text) > b.charCap {
			text = text[:b.charCap] + truncationMarker
		}
		blocks = append(blocks, fmt.Sprintf("--- DOC %d (id=%s, score=%.4f) ---\n%s\n", i+1, m.ChunkID, m.Score, text))
	}

	blocks = budget.TrimBlocks(blocks, b.maxTokens)

	provenance := make([]rag.ProvenanceEntry, 0, len(blocks))
	for _, m := range matches[:len(blocks)] {
		provenance = append(provenance, rag.ProvenanceEntry{
			ID:     m.ChunkID,
			Source: m.Chunk.Source,
			Score:  m.Score,
		})
	}

	return strings.Join(blocks, "\n\n"), provenance
}

// summarySnippetCap bounds the per-chunk snippet length in hybrid summaries.
const summarySnippetCap = 300

// SummarizeMatches renders matches as short one-line summaries for the hybrid
// prompt, where the database content shares space with web results.
func SummarizeMatches(matches []rag.Match) string {
	var b strings.Builder
	for i, m := range matches {
		text := strings.TrimSpace(m.Chunk.Text)
		text = strings.Join(strings.Fields(text), " ")
		if len(text) > summarySnippetCap {
			text = text[:summarySnippetCap] + truncationMarker
		}
		fmt.Fprintf(&b, "[%d] (id=%s, source=%s, score=%.4f) %s\n", i+1, m.ChunkID, m.Chunk.Source, m.Score, text)
	}
	return b.String()
}

// SummarizeWebResults renders web search results for the hybrid prompt.
func SummarizeWebResults(results []rag.WebResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n", i+1, r.Title, r.Link, strings.TrimSpace(r.Snippet))
	}
	return b.String()
}
