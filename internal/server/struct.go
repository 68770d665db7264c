package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/skywalkers77/astro-rag/internal/ingestion"
	"github.com/skywalkers77/astro-rag/internal/pipeline"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
}

// queryRunner is the interface handleQuery calls to answer a question.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type queryRunner interface {
	Query(ctx context.Context, req pipeline.QueryRequest) (pipeline.QueryResult, error)
}

// ingestRunner is the interface handleIngest calls to ingest a document.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestRunner interface {
	Ingest(ctx context.Context, req ingestion.Request, progress func(msg string)) (ingestion.Result, error)
}

// Server is the HTTP server that exposes the query and ingestion pipelines.
type Server struct {
	// queries answers questions; set to the query pipeline in production.
	queries queryRunner
	// ingests stores documents; set to the ingestion pipeline in production.
	ingests ingestRunner
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// started is when the server was constructed, reported as uptime.
	started time.Time
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryResponse is the JSON response for POST /api/query. It embeds the
// pipeline result and adds request timing.
type queryResponse struct {
	pipeline.QueryResult
	// ElapsedMS is the wall-clock handling time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// ingestRequest is the JSON body for POST /api/ingest. Exactly one of Text
// or URL must be provided; URL additionally requires Filename.
type ingestRequest struct {
	// Text is raw document text, already extracted.
	Text string `json:"text,omitempty"`
	// URL is a fetchable document reference.
	URL string `json:"url,omitempty"`
	// Filename names the document and selects the extraction path.
	Filename string `json:"filename,omitempty"`
}

// ingestResponse is the JSON response for POST /api/ingest.
type ingestResponse struct {
	// DocumentID is the generated id shared by all chunks of the document.
	DocumentID string `json:"document_id"`
	// ChunkIDs are the store-assigned chunk ids, in sequence order.
	ChunkIDs []string `json:"chunk_ids"`
	// Chunks is the number of chunks stored.
	Chunks int `json:"chunks"`
	// Placeholder is true when extraction failed and a diagnostic
	// placeholder chunk was stored instead of real content.
	Placeholder bool `json:"placeholder,omitempty"`
	// ElapsedMS is the wall-clock handling time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// healthResponse is the JSON response for GET /api/health.
type healthResponse struct {
	// Status is always "ok" when the process is serving.
	Status string `json:"status"`
	// Version is the build version injected via ldflags.
	Version string `json:"version"`
	// Commit is the short git SHA of the build.
	Commit string `json:"commit"`
	// UptimeSeconds is how long the server has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`
}
