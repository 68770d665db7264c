// Package chunker splits raw document text into overlapping,
// boundary-respecting segments. It prefers to cut at sentence-terminal
// punctuation, falls back to whitespace, and only as a last resort cuts
// mid-token. Chunking is pure and deterministic: no I/O, no clock, no
// randomness.
package chunker

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/skywalkers77/astro-rag/internal/rag"
)

// Default window parameters, matching the ingestion defaults of the
// coarse document pipeline.
const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 200
)

// Boundary-selection ratios. A sentence terminal only qualifies as a cut
// point when it lies at or after start + sentenceRatio*size; whitespace
// only at or after start + whitespaceRatio*size. Both floors exist to
// avoid pathologically short chunks.
const (
	sentenceRatio   = 0.7
	whitespaceRatio = 0.8
)

// sentenceTerminals are the punctuation characters treated as sentence ends.
const sentenceTerminals = ".?!"

// Chunker holds a validated window configuration.
type Chunker struct {
	// size is the maximum chunk length in characters.
	size int
	// overlap is the number of characters shared between consecutive chunks.
	overlap int
}

// New constructs a Chunker. A non-positive size falls back to
// DefaultChunkSize; a negative overlap is treated as zero. An overlap that
// is not strictly less than size would stall the sliding window, so it is
// clamped to size/10 and a warning is logged.
func New(size, overlap int, log *slog.Logger) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		clamped := size / 10
		if log != nil {
			log.Warn("chunker: overlap must be smaller than chunk size, clamping",
				slog.Int("chunk_size", size),
				slog.Int("overlap", overlap),
				slog.Int("clamped_overlap", clamped),
			)
		}
		overlap = clamped
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the configured maximum chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap length.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into ordered, overlapping segments.
//
// Text no longer than the chunk size is returned as a single chunk equal
// to the whole text — even when empty; an empty input yields one empty
// chunk, which is a documented edge case, not an error. This also makes
// Split idempotent on its own output: re-splitting an emitted chunk
// returns it unchanged.
//
// Longer text is cut by a sliding window: the candidate end is
// start+size; the cut prefers the last sentence terminal at or before the
// candidate (subject to the sentence floor), then the last whitespace
// (subject to the whitespace floor), then the raw candidate position. The
// next window starts at end−overlap. Multi-chunk output is trimmed of
// surrounding whitespace and empty pieces are dropped.
func (c *Chunker) Split(text string) []string {
	if len(text) <= c.size {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.cut(text, start, end)
		}

		if piece := strings.TrimSpace(text[start:end]); piece != "" {
			out = append(out, piece)
		}

		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// A boundary cut landed close enough to start that stepping
			// back by the overlap would stall the window.
			next = end
		}
		start = next
	}

	return out
}

// cut selects the end position for the window [start, start+size), where
// limit is the raw candidate boundary and is known to lie inside text.
func (c *Chunker) cut(text string, start, limit int) int {
	window := text[start:limit]

	if p := strings.LastIndexAny(window, sentenceTerminals); p >= 0 {
		abs := start + p
		if abs >= start+int(sentenceRatio*float64(c.size)) {
			// Cut after the terminal so the punctuation stays with its sentence.
			return abs + 1
		}
	}

	if p := strings.LastIndexFunc(window, unicode.IsSpace); p >= 0 {
		abs := start + p
		if abs >= start+int(whitespaceRatio*float64(c.size)) {
			return abs
		}
	}

	// No qualifying boundary — a mid-token cut is the last resort.
	return limit
}

// ChunkDocument splits text and decorates each piece with its placement
// metadata: document id, source, sequence index, total count, character
// length, and the original text length. Chunk ids are left empty — the
// chunk store assigns them at insert time.
func (c *Chunker) ChunkDocument(documentID, source, text string) []rag.Chunk {
	pieces := c.Split(text)

	chunks := make([]rag.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, rag.Chunk{
			DocumentID:    documentID,
			Source:        source,
			Text:          trimmed,
			SequenceIndex: len(chunks),
			CharLength:    len(trimmed),
			Type:          rag.ChunkText,
			Metadata: map[string]string{
				"original_text_length": strconv.Itoa(len(text)),
			},
		})
	}

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}

	return chunks
}
