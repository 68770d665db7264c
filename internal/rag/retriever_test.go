package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeEmbedder returns a fixed vector for every input, or a configured error.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// fakeIndex returns a canned hit list regardless of the query vector.
type fakeIndex struct {
	hits []Hit
	err  error
}

func (f *fakeIndex) Upsert(context.Context, []Point) error { return nil }

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Close() error { return nil }

// fakeStore hydrates from an in-memory map; ids not in the map are misses.
type fakeStore struct {
	records map[string]Chunk
	err     error
}

func (f *fakeStore) Insert(_ context.Context, c Chunk) (Chunk, error) { return c, nil }

func (f *fakeStore) Get(_ context.Context, ids []string) ([]Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Chunk
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

// chunkFixture builds a stored chunk record for the given id.
func chunkFixture(id, docID string) Chunk {
	return Chunk{
		ID:         id,
		DocumentID: docID,
		Source:     docID + ".pdf",
		Text:       "content of " + id,
		Type:       ChunkText,
	}
}

func Test_Retriever_RankingPreserved(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []Hit{
		{ID: "c2", Score: 0.91},
		{ID: "c1", Score: 0.84},
		{ID: "c3", Score: 0.52},
	}}
	store := &fakeStore{records: map[string]Chunk{
		"c1": chunkFixture("c1", "doc-a"),
		"c2": chunkFixture("c2", "doc-a"),
		"c3": chunkFixture("c3", "doc-b"),
	}}

	r, err := NewRetriever(&fakeEmbedder{vector: []float32{0.1, 0.2}}, idx, store, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	matches, err := r.Retrieve(context.Background(), "question", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("want 3 matches, got %d", len(matches))
	}

	wantOrder := []string{"c2", "c1", "c3"}
	for i, want := range wantOrder {
		if matches[i].ChunkID != want {
			t.Errorf("match[%d]: want id %s, got %s", i, want, matches[i].ChunkID)
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not sorted descending at index %d", i)
		}
	}
	if matches[0].DocumentID != "doc-a" {
		t.Errorf("want document id doc-a, got %s", matches[0].DocumentID)
	}
}

func Test_Retriever_DropsStoreMisses(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []Hit{
		{ID: "c1", Score: 0.9},
		{ID: "gone", Score: 0.8},
		{ID: "c3", Score: 0.7},
	}}
	store := &fakeStore{records: map[string]Chunk{
		"c1": chunkFixture("c1", "doc-a"),
		"c3": chunkFixture("c3", "doc-a"),
	}}

	r, err := NewRetriever(&fakeEmbedder{vector: []float32{1}}, idx, store, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	matches, err := r.Retrieve(context.Background(), "question", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("want 2 matches after dropping the miss, got %d", len(matches))
	}
	if matches[0].ChunkID != "c1" || matches[1].ChunkID != "c3" {
		t.Errorf("unexpected ids after miss drop: %s, %s", matches[0].ChunkID, matches[1].ChunkID)
	}
}

func Test_Retriever_EmptyIndexIsNotAnError(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, &fakeStore{}, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	matches, err := r.Retrieve(context.Background(), "question", 8)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("want empty result, got %d matches", len(matches))
	}
}

func Test_Retriever_TopKRespected(t *testing.T) {
	t.Parallel()

	var hits []Hit
	records := make(map[string]Chunk)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("c%d", i)
		hits = append(hits, Hit{ID: id, Score: float32(10-i) / 10})
		records[id] = chunkFixture(id, "doc-a")
	}

	r, err := NewRetriever(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{hits: hits}, &fakeStore{records: records}, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	matches, err := r.Retrieve(context.Background(), "question", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("want at most 3 matches, got %d", len(matches))
	}
}

func Test_Retriever_EmbeddingFailurePropagates(t *testing.T) {
	t.Parallel()

	embErr := fmt.Errorf("upstream 503: %w", ErrEmbeddingService)
	r, err := NewRetriever(&fakeEmbedder{err: embErr}, &fakeIndex{}, &fakeStore{}, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}

	_, err = r.Retrieve(context.Background(), "question", 5)
	if !errors.Is(err, ErrEmbeddingService) {
		t.Fatalf("want ErrEmbeddingService, got %v", err)
	}
}

func Test_NewRetriever_NilCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeIndex{}, &fakeStore{}, 5); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, &fakeStore{}, 5); err == nil {
		t.Error("want error for nil index")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, &fakeIndex{}, nil, 5); err == nil {
		t.Error("want error for nil store")
	}
}
