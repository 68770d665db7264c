package rag

import (
	"context"
	"fmt"
)

// DefaultRetriever implements Retriever by combining an Embedder, a
// VectorIndex, and a ChunkStore. It embeds the query at retrieval time,
// asks the index for neighbours, then hydrates the winning ids from the
// store in a single batch call.
type DefaultRetriever struct {
	// embedder converts query text to a dense vector.
	embedder Embedder

	// index performs the nearest-neighbour search.
	index VectorIndex

	// store hydrates chunk ids returned by the index into full records.
	store ChunkStore

	// defaultTopK is the number of results to return when the caller passes 0.
	defaultTopK int
}

// NewRetriever constructs a DefaultRetriever from its three collaborators.
// defaultTopK sets the fallback result count when Retrieve is called with
// topK=0.
func NewRetriever(embedder Embedder, index VectorIndex, store ChunkStore, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &DefaultRetriever{
		embedder:    embedder,
		index:       index,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns at most topK hydrated matches in
// the index's ranking order. Hits whose record is missing from the store
// are dropped silently — the store and index are only eventually
// consistent, and a partial result beats a failed query. Zero index hits
// produce an empty slice, not an error.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector for query: %w", ErrEmbeddingService)
	}

	hits, err := r.index.Query(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}
	if len(hits) == 0 {
		return []Match{}, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}

	records, err := r.store.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("rag: hydrating %d chunks failed: %w", len(ids), err)
	}

	byID := make(map[string]Chunk, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	// Re-associate records with their score, preserving index ranking.
	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		rec, ok := byID[h.ID]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			ChunkID:    h.ID,
			DocumentID: rec.DocumentID,
			Score:      h.Score,
			Chunk:      rec,
		})
	}

	return matches, nil
}
