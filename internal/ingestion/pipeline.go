// Package ingestion implements the document ingestion pipeline: resolve the
// input to plain text, chunk it, embed each chunk, persist chunks in the
// store, and upsert the embeddings into the vector index in one batch.
// It is invoked by the `astrorag ingest` CLI command and the ingest endpoint.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skywalkers77/astro-rag/internal/chunker"
	"github.com/skywalkers77/astro-rag/internal/extract"
	"github.com/skywalkers77/astro-rag/internal/rag"
)

// maxDownloadBytes caps how much of a remote document is fetched.
const maxDownloadBytes = 50 << 20 // 50 MiB

// Request describes one document to ingest. Exactly one of Text, URL, or
// Content must be provided; URL and Content additionally require a Filename
// so the extractor can pick a format.
type Request struct {
	// Text is raw document text, already extracted.
	Text string
	// URL is a fetchable document reference.
	URL string
	// Content is uploaded document bytes.
	Content []byte
	// Filename names the document; its extension drives extraction.
	Filename string
}

// Result summarizes a completed ingestion.
type Result struct {
	// DocumentID is the generated id shared by all chunks of this document.
	DocumentID string
	// ChunkIDs are the store-assigned ids, in sequence order.
	ChunkIDs []string
	// Chunks is the number of chunks produced.
	Chunks int
	// Placeholder is true when extraction failed and a diagnostic chunk was
	// indexed instead of real content.
	Placeholder bool
	// Elapsed is the wall-clock ingestion duration.
	Elapsed time.Duration
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to 200 if zero.
	ChunkOverlap int

	// HTTPTimeout is the timeout for each document fetch request.
	// Defaults to 30s if zero.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// Pipeline orchestrates the resolve → chunk → embed → store → index flow.
type Pipeline struct {
	// embedder converts chunk text into dense vector embeddings.
	embedder rag.Embedder

	// index receives the embedded vectors.
	index rag.VectorIndex

	// store persists chunk text and provenance.
	store rag.ChunkStore

	// splitter produces boundary-aware chunks.
	splitter *chunker.Chunker

	// extractor turns document bytes into plain text.
	extractor *extract.Extractor

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// httpClient fetches remote documents.
	httpClient *http.Client

	// log reports progress and extraction fallbacks.
	log *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, store rag.ChunkStore, cfg *Config, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "astro-rag/1.0 (document ingestion)"
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		embedder:  embedder,
		index:     index,
		store:     store,
		splitter:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, log),
		extractor: extract.NewExtractor(),
		cfg:       cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		log: log,
	}, nil
}

// Ingest runs the full pipeline for one document. Chunks are embedded one at
// a time and inserted into the store as they go; the vector index is updated
// with a single batch upsert at the end, so a failed embed aborts before
// anything reaches the index. Progress is reported via the optional callback.
func (p *Pipeline) Ingest(ctx context.Context, req Request, progress func(msg string)) (Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()

	text, source, origin, placeholder, err := p.resolve(ctx, req)
	if err != nil {
		return Result{}, err
	}

	documentID := uuid.NewString()
	var chunks []rag.Chunk
	if placeholder {
		// A diagnostic placeholder is always one chunk, never split.
		chunks = []rag.Chunk{{
			DocumentID:  documentID,
			Source:      source,
			Text:        text,
			TotalChunks: 1,
			CharLength:  len(text),
			Type:        rag.ChunkText,
			Metadata:    map[string]string{"placeholder": "true"},
		}}
	} else {
		chunks = p.splitter.ChunkDocument(documentID, source, text)
	}
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("ingestion: document %s has no indexable content: %w", source, rag.ErrInvalidInput)
	}
	format := inferFormat(source)
	for i := range chunks {
		chunks[i].Metadata[metaFormat] = format
		chunks[i].Metadata[metaOrigin] = origin
		if origin == "url" {
			chunks[i].Metadata[metaURL] = req.URL
		}
	}
	progress(fmt.Sprintf("chunked %s into %d chunks", source, len(chunks)))

	points := make([]rag.Point, 0, len(chunks))
	chunkIDs := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		vectors, err := p.embedder.Embed(ctx, []string{chunk.Text})
		if err != nil {
			return Result{}, fmt.Errorf("ingestion: embed chunk %d of %s: %w", i, source, err)
		}
		if len(vectors) != 1 || len(vectors[0]) == 0 {
			return Result{}, fmt.Errorf("ingestion: embed chunk %d of %s returned no vector: %w",
				i, source, rag.ErrEmbeddingService)
		}

		stored, err := p.store.Insert(ctx, chunk)
		if err != nil {
			return Result{}, fmt.Errorf("ingestion: store chunk %d of %s: %w", i, source, err)
		}

		points = append(points, rag.Point{ID: stored.ID, Vector: vectors[0]})
		chunkIDs = append(chunkIDs, stored.ID)
		progress(fmt.Sprintf("embedded chunk %d/%d of %s", i+1, len(chunks), source))
	}

	if err := p.index.Upsert(ctx, points); err != nil {
		return Result{}, fmt.Errorf("ingestion: index upsert for %s: %w", source, err)
	}
	progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), source))

	return Result{
		DocumentID:  documentID,
		ChunkIDs:    chunkIDs,
		Chunks:      len(chunks),
		Placeholder: placeholder,
		Elapsed:     time.Since(start),
	}, nil
}

// resolve turns the request into (text, source name, origin, placeholder?).
// Malformed requests fail with rag.ErrInvalidInput; unextractable documents
// produce a diagnostic placeholder text instead of failing, so the document's
// existence is still queryable.
func (p *Pipeline) resolve(ctx context.Context, req Request) (string, string, string, bool, error) {
	switch {
	case strings.TrimSpace(req.Text) != "":
		source := req.Filename
		if source == "" {
			source = "inline"
		}
		return req.Text, source, "inline", false, nil

	case req.URL != "":
		if req.Filename == "" {
			return "", "", "", false, fmt.Errorf("ingestion: url ingestion requires a filename: %w", rag.ErrInvalidInput)
		}
		body, err := p.fetch(ctx, req.URL)
		if err != nil {
			return "", "", "", false, err
		}
		text, placeholder := p.extractOrPlaceholder(req.Filename, body)
		return text, req.Filename, "url", placeholder, nil

	case len(req.Content) > 0:
		if req.Filename == "" {
			return "", "", "", false, fmt.Errorf("ingestion: content ingestion requires a filename: %w", rag.ErrInvalidInput)
		}
		text, placeholder := p.extractOrPlaceholder(req.Filename, req.Content)
		return text, req.Filename, "upload", placeholder, nil

	default:
		return "", "", "", false, fmt.Errorf("ingestion: request must provide text, url, or content: %w", rag.ErrInvalidInput)
	}
}

// extractOrPlaceholder extracts text from content, substituting a diagnostic
// placeholder when nothing readable is found.
func (p *Pipeline) extractOrPlaceholder(filename string, content []byte) (string, bool) {
	text, err := p.extractor.Extract(filename, content)
	if err != nil {
		p.log.Warn("ingestion: extraction failed, indexing placeholder",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		placeholder := fmt.Sprintf("Document %q could not be read: no text could be extracted from its contents (%v).", filename, err)
		return placeholder, true
	}
	return text, false
}

// fetch retrieves a remote document, capped at maxDownloadBytes.
func (p *Pipeline) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ingestion: creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ingestion: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ingestion: fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ingestion: read body of %s: %w", url, err)
	}
	if len(body) > maxDownloadBytes {
		return nil, fmt.Errorf("ingestion: %s exceeds the %d byte download cap", url, maxDownloadBytes)
	}

	return body, nil
}
