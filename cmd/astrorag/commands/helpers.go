package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"

	"github.com/skywalkers77/astro-rag/internal/config"
	"github.com/skywalkers77/astro-rag/internal/embedder"
	"github.com/skywalkers77/astro-rag/internal/ingestion"
	"github.com/skywalkers77/astro-rag/internal/pipeline"
	"github.com/skywalkers77/astro-rag/internal/rag"
	"github.com/skywalkers77/astro-rag/internal/store"
	"github.com/skywalkers77/astro-rag/internal/websearch"
)

// getEnvOrDefault returns the env var value or a default if unset.
func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvInt returns the env var parsed as int, or a default if unset or
// unparseable.
func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// getEnvFloat32 returns the env var parsed as float32, or a default if
// unset or unparseable.
func getEnvFloat32(key string, defaultVal float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return defaultVal
}

// embeddingBackend resolves the embedding backend name the same way the
// embedder factory does, for logging and dimension lookup.
func embeddingBackend() string {
	return getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "gemini"))
}

// buildIndex connects to Qdrant using env configuration and ensures the
// target collection exists with the pipeline-wide vector dimension.
func buildIndex(ctx context.Context, log *slog.Logger) (*rag.QdrantIndex, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "astro-docs")
	vectorSize := uint64(embedder.DefaultDimensions(embeddingBackend())) //nolint:gosec // dimensions are bounded

	index, err := rag.NewQdrantIndex(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}

	log.Info("qdrant index ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
		slog.Uint64("vector_size", vectorSize),
	)
	return index, nil
}

// buildStore opens the SQLite chunk store. ASTRORAG_STORE_DB overrides the
// default path (~/.astrorag/chunks.db).
func buildStore(log *slog.Logger) (*store.SQLiteStore, error) {
	dbPath := os.Getenv("ASTRORAG_STORE_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("could not resolve store path: %w", err)
		}
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	log.Info("chunk store opened", slog.String("path", dbPath))
	return st, nil
}

// buildSearcher constructs the optional Google web searcher for hybrid
// queries. Returns nil when search credentials are not configured; the
// query pipeline treats a nil searcher as a degraded hybrid path.
func buildSearcher(log *slog.Logger) (rag.WebSearcher, error) {
	s, err := websearch.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise web search: %w", err)
	}
	if s == nil {
		log.Info("web search disabled", slog.String("reason", "GOOGLE_SEARCH_API_KEY not set"))
		// Return an untyped nil so interface comparisons downstream work.
		return nil, nil
	}
	log.Info("web search enabled")
	return s, nil
}

// chunkParams resolves the chunker size and overlap from CHUNK_PRESET,
// with CHUNK_SIZE/CHUNK_OVERLAP taking precedence when set.
func chunkParams(log *slog.Logger) (size, overlap int) {
	preset := os.Getenv("CHUNK_PRESET")
	size, overlap, ok := config.ChunkPreset(preset)
	if !ok {
		log.Warn("unknown chunk preset, using default", slog.String("preset", preset))
		size, overlap, _ = config.ChunkPreset(config.PresetDefault)
	}
	size = getEnvInt("CHUNK_SIZE", size)
	overlap = getEnvInt("CHUNK_OVERLAP", overlap)
	return size, overlap
}

// queryStack bundles the query pipeline with the live connections it owns.
type queryStack struct {
	// Pipeline answers questions.
	Pipeline *pipeline.Pipeline
	// Index is the live Qdrant connection, exposed for readiness probes.
	Index *rag.QdrantIndex
	// Store is the open chunk store, exposed for readiness probes.
	Store *store.SQLiteStore
	// Close releases the index and store connections.
	Close func()
}

// buildQueryStack wires embedder, index, store, retriever, generator, and
// searcher into a ready query pipeline. The caller must invoke Close when
// done.
func buildQueryStack(ctx context.Context, log *slog.Logger, chatModel model.BaseChatModel) (*queryStack, error) {
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", embeddingBackend()))

	index, err := buildIndex(ctx, log)
	if err != nil {
		return nil, err
	}

	st, err := buildStore(log)
	if err != nil {
		index.Close()
		return nil, err
	}

	closeAll := func() {
		index.Close()
		_ = st.Close()
	}

	retriever, err := rag.NewRetriever(emb, index, st, getEnvInt("QUERY_TOP_K", pipeline.DefaultTopK))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	generator, err := pipeline.NewGenerator(chatModel)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	searcher, err := buildSearcher(log)
	if err != nil {
		closeAll()
		return nil, err
	}

	builder := pipeline.NewContextBuilder(
		getEnvInt("CONTEXT_CHAR_CAP", 0),
		getEnvInt("MAX_CONTEXT_TOKENS", 0),
	)

	p, err := pipeline.New(retriever, generator, builder, searcher, log)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to create query pipeline: %w", err)
	}

	return &queryStack{Pipeline: p, Index: index, Store: st, Close: closeAll}, nil
}

// ingestStack bundles the ingestion pipeline with the connections it owns.
type ingestStack struct {
	// Pipeline ingests documents.
	Pipeline *ingestion.Pipeline
	// Index is the live Qdrant connection, exposed for readiness probes.
	Index *rag.QdrantIndex
	// Store is the open chunk store, exposed for readiness probes.
	Store *store.SQLiteStore
	// Close releases the index and store connections.
	Close func()
}

// buildIngestStack wires embedder, index, store, and chunking config into a
// ready ingestion pipeline. When reuse is non-nil its index and store are
// shared instead of opening fresh connections (the serve command runs both
// pipelines against the same backends).
func buildIngestStack(ctx context.Context, log *slog.Logger, reuse *queryStack) (*ingestStack, error) {
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	var index *rag.QdrantIndex
	var st *store.SQLiteStore
	closeAll := func() {}

	if reuse != nil {
		index = reuse.Index
		st = reuse.Store
	} else {
		index, err = buildIndex(ctx, log)
		if err != nil {
			return nil, err
		}
		st, err = buildStore(log)
		if err != nil {
			index.Close()
			return nil, err
		}
		closeAll = func() {
			index.Close()
			_ = st.Close()
		}
	}

	size, overlap := chunkParams(log)
	p, err := ingestion.NewPipeline(emb, index, st, &ingestion.Config{
		ChunkSize:    size,
		ChunkOverlap: overlap,
	}, log)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	log.Info("ingestion pipeline ready",
		slog.Int("chunk_size", size),
		slog.Int("chunk_overlap", overlap),
	)
	return &ingestStack{Pipeline: p, Index: index, Store: st, Close: closeAll}, nil
}
