// Package rag defines the data model and collaborator contracts for the
// retrieval-augmented query pipeline: chunk records, similarity matches,
// provenance, and the interfaces for the embedding service, vector index,
// chunk store, and web search service. Concrete implementations (Qdrant,
// SQLite, the embedder backends) satisfy these interfaces so the pipeline
// layer never depends on a specific backend.
package rag

import (
	"context"
	"time"
)

// ChunkType classifies the content of a chunk record.
type ChunkType string

const (
	// ChunkText is ordinary prose extracted from a document.
	ChunkText ChunkType = "text"
	// ChunkTable is a textual rendering of a table.
	ChunkTable ChunkType = "table"
	// ChunkImage is a textual description of an embedded image.
	ChunkImage ChunkType = "image"
)

// Chunk is the atomic unit of retrieval: a bounded contiguous slice of a
// document's text plus its placement metadata. Chunks are created once at
// ingestion time and are immutable thereafter.
type Chunk struct {
	// ID is the unique identifier for this chunk. Empty until the chunk
	// store assigns one at insert time.
	ID string

	// DocumentID identifies the source document this chunk was cut from.
	DocumentID string

	// Source is the origin of the document (filename or URL).
	Source string

	// Text is the chunk content.
	Text string

	// SequenceIndex is the zero-based position of this chunk within its
	// document. Stable and monotonically increasing per DocumentID.
	SequenceIndex int

	// TotalChunks is the number of non-empty chunks the document produced.
	TotalChunks int

	// CharLength is len(Text), recorded at creation time.
	CharLength int

	// PageNumber is the 1-based source page, or 0 when unknown.
	PageNumber int

	// Type classifies the chunk content (text, table, image).
	Type ChunkType

	// Metadata holds arbitrary key-value pairs attached at ingestion time.
	Metadata map[string]string

	// CreatedAt is when the chunk record was persisted.
	CreatedAt time.Time
}

// Match is the transient result of one similarity retrieval: a hydrated
// chunk paired with the score the vector index assigned it. Matches are
// never persisted; they live for the duration of a single query.
type Match struct {
	// ChunkID is the id the vector index returned.
	ChunkID string

	// DocumentID is the source document of the hydrated chunk.
	DocumentID string

	// Score is the similarity score (0..1, higher is more similar).
	Score float32

	// Chunk is the full record hydrated from the chunk store.
	Chunk Chunk
}

// ProvenanceEntry is the user-facing projection of a Match, emitted with
// every answer. Ordering mirrors the match ranking.
type ProvenanceEntry struct {
	// ID is the chunk id backing this entry.
	ID string `json:"id"`
	// Source is the origin of the chunk's document.
	Source string `json:"source"`
	// Score is the similarity score of the underlying match.
	Score float32 `json:"score"`
}

// WebResult is a single ranked result from the web search service.
type WebResult struct {
	// Title is the page title.
	Title string `json:"title"`
	// Link is the result URL.
	Link string `json:"link"`
	// Snippet is the short excerpt the search engine produced.
	Snippet string `json:"snippet"`
}

// Point pairs a chunk id with its embedding for a vector index upsert.
type Point struct {
	// ID is the chunk id this vector belongs to.
	ID string
	// Vector is the fixed-dimension embedding.
	Vector []float32
}

// Hit is one nearest-neighbour result from the vector index.
type Hit struct {
	// ID is the chunk id of the matched point.
	ID string
	// Score is the similarity score the index assigned.
	Score float32
}

// Embedder is the interface for converting text into dense vector
// embeddings. Implementations must be safe to call from multiple goroutines
// and must never substitute a zero vector for a failed upstream call —
// errors propagate so ingestion and query flows can abort or retry.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the interface for the nearest-neighbour index. All vectors
// in one index share a single dimension; mismatched-dimension calls must
// fail loudly rather than silently truncate or pad.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Upsert stores or updates a batch of points.
	Upsert(ctx context.Context, points []Point) error

	// Query returns the topK nearest neighbours of vector, best first.
	// A miss is an empty slice, not an error.
	Query(ctx context.Context, vector []float32, topK int) ([]Hit, error)

	// Close releases any resources held by the index.
	Close() error
}

// ChunkStore is the interface for persisted chunk records. Insert must
// return the stored record synchronously (read-own-write) since ingestion
// needs the generated id to pair with the chunk's vector.
// Implementations must be safe to call from multiple goroutines.
type ChunkStore interface {
	// Insert persists c, assigning an id if it has none, and returns the
	// stored record.
	Insert(ctx context.Context, c Chunk) (Chunk, error)

	// Get returns the records for the given id set. Missing ids are simply
	// absent from the result — callers tolerate partial misses.
	Get(ctx context.Context, ids []string) ([]Chunk, error)

	// Close releases any resources held by the store.
	Close() error
}

// WebSearcher is the interface for the external web search service used by
// hybrid mode.
type WebSearcher interface {
	// Search returns the ranked results for query.
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// Retriever is the high-level interface the pipeline uses to fetch ranked,
// hydrated matches for a query.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns at most topK matches for query, highest score first.
	Retrieve(ctx context.Context, query string, topK int) ([]Match, error)
}
