package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skywalkers77/astro-rag/internal/rag"
)

// fakeEmbedder returns a fixed-dimension vector per text and counts calls.
type fakeEmbedder struct {
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// fakeIndex records upsert batches.
type fakeIndex struct {
	batches [][]rag.Point
}

func (x *fakeIndex) Upsert(_ context.Context, points []rag.Point) error {
	x.batches = append(x.batches, points)
	return nil
}

func (x *fakeIndex) Query(context.Context, []float32, int) ([]rag.Hit, error) {
	return nil, nil
}

func (x *fakeIndex) Close() error { return nil }

// fakeStore assigns sequential ids and keeps inserted chunks.
type fakeStore struct {
	inserted []rag.Chunk
}

func (s *fakeStore) Insert(_ context.Context, c rag.Chunk) (rag.Chunk, error) {
	c.ID = fmt.Sprintf("chunk-%d", len(s.inserted))
	s.inserted = append(s.inserted, c)
	return c, nil
}

func (s *fakeStore) Get(context.Context, []string) ([]rag.Chunk, error) { return nil, nil }
func (s *fakeStore) Close() error                                       { return nil }

func newTestPipeline(t *testing.T, embedder rag.Embedder, index *fakeIndex, store *fakeStore) *Pipeline {
	t.Helper()
	p, err := NewPipeline(embedder, index, store, &Config{ChunkSize: 50, ChunkOverlap: 10}, slog.Default())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func Test_Ingest_TextEndToEnd(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	store := &fakeStore{}
	p := newTestPipeline(t, embedder, index, store)

	text := strings.Repeat("Spectral class encodes surface temperature. ", 5)
	got, err := p.Ingest(context.Background(), Request{Text: text, Filename: "spectra.txt"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.DocumentID == "" {
		t.Error("want generated document id")
	}
	if got.Chunks < 2 {
		t.Fatalf("want multiple chunks for long text, got %d", got.Chunks)
	}
	if embedder.calls != got.Chunks {
		t.Errorf("want one embed call per chunk, got %d calls for %d chunks", embedder.calls, got.Chunks)
	}
	if len(store.inserted) != got.Chunks {
		t.Errorf("want %d store inserts, got %d", got.Chunks, len(store.inserted))
	}
	if len(index.batches) != 1 {
		t.Fatalf("want a single batch upsert, got %d", len(index.batches))
	}
	if len(index.batches[0]) != got.Chunks {
		t.Errorf("want %d points in the batch, got %d", got.Chunks, len(index.batches[0]))
	}
	for i, point := range index.batches[0] {
		if point.ID != got.ChunkIDs[i] {
			t.Errorf("point %d: id %s does not match stored chunk %s", i, point.ID, got.ChunkIDs[i])
		}
	}
	first := store.inserted[0]
	if first.Metadata[metaFormat] != "text" || first.Metadata[metaOrigin] != "inline" {
		t.Errorf("metadata not stamped: %v", first.Metadata)
	}
	if first.DocumentID != got.DocumentID {
		t.Errorf("chunk document id %s != result %s", first.DocumentID, got.DocumentID)
	}
}

func Test_Ingest_URLFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Orbital resonance locks Io, Europa, and Ganymede in a 4:2:1 ratio.")
	}))
	defer srv.Close()

	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	store := &fakeStore{}
	p := newTestPipeline(t, embedder, index, store)

	got, err := p.Ingest(context.Background(), Request{URL: srv.URL, Filename: "resonance.txt"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Chunks == 0 {
		t.Fatal("want chunks from fetched document")
	}
	if store.inserted[0].Metadata[metaOrigin] != "url" {
		t.Errorf("want url origin, got %v", store.inserted[0].Metadata)
	}
	if store.inserted[0].Metadata[metaURL] != srv.URL {
		t.Errorf("want fetch url recorded, got %v", store.inserted[0].Metadata)
	}
}

func Test_Ingest_InvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
	}{
		{name: "empty request", req: Request{}},
		{name: "whitespace text only", req: Request{Text: "   "}},
		{name: "url without filename", req: Request{URL: "http://example.com/doc.pdf"}},
		{name: "content without filename", req: Request{Content: []byte("bytes")}},
	}

	p := newTestPipeline(t, &fakeEmbedder{}, &fakeIndex{}, &fakeStore{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := p.Ingest(context.Background(), tt.req, nil)
			if !errors.Is(err, rag.ErrInvalidInput) {
				t.Fatalf("want ErrInvalidInput, got %v", err)
			}
		})
	}
}

func Test_Ingest_EmbedFailureAbortsBeforeIndex(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{err: rag.ErrEmbeddingService}
	index := &fakeIndex{}
	store := &fakeStore{}
	p := newTestPipeline(t, embedder, index, store)

	_, err := p.Ingest(context.Background(), Request{Text: "Some document text."}, nil)
	if !errors.Is(err, rag.ErrEmbeddingService) {
		t.Fatalf("want ErrEmbeddingService, got %v", err)
	}
	if len(index.batches) != 0 {
		t.Errorf("index must stay untouched after embed failure, got %d batches", len(index.batches))
	}
}

func Test_Ingest_UnreadableDocumentGetsPlaceholder(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	store := &fakeStore{}
	p := newTestPipeline(t, embedder, index, store)

	// Not a zip, not text, no printable runs: extraction fails outright and
	// the pipeline indexes a diagnostic placeholder instead.
	got, err := p.Ingest(context.Background(), Request{
		Content:  []byte{0x00, 0x01, 0x02, 0x03},
		Filename: "corrupt.docx",
	}, nil)
	if err != nil {
		t.Fatalf("unreadable document must not fail ingestion: %v", err)
	}
	if !got.Placeholder {
		t.Error("want placeholder flag set")
	}
	if got.Chunks != 1 {
		t.Fatalf("want a single placeholder chunk, got %d", got.Chunks)
	}
	if !strings.Contains(store.inserted[0].Text, "could not be read") {
		t.Errorf("placeholder text missing: %q", store.inserted[0].Text)
	}
}

func Test_Ingest_ProgressCallback(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{}, &fakeIndex{}, &fakeStore{})

	var messages []string
	_, err := p.Ingest(context.Background(), Request{Text: "Short document."},
		func(msg string) { messages = append(messages, msg) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) < 2 {
		t.Errorf("want progress messages, got %v", messages)
	}
}

func Test_InferFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{name: "paper.pdf", want: "pdf"},
		{name: "report.DOCX", want: "docx"},
		{name: "page.html", want: "html"},
		{name: "notes.md", want: "markdown"},
		{name: "plain.txt", want: "text"},
		{name: "https://example.com/docs/spec.pdf?version=2", want: "pdf"},
		{name: "inline", want: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := inferFormat(tt.name); got != tt.want {
				t.Fatalf("inferFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
