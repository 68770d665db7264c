package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skywalkers77/astro-rag/internal/ingestion"
	"github.com/skywalkers77/astro-rag/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Shared fakes and helpers
// ---------------------------------------------------------------------------

// fakeQueryRunner is a test double for the query pipeline.
type fakeQueryRunner struct {
	// res is returned from Query when err is nil.
	res pipeline.QueryResult
	// err is returned from Query.
	err error
	// lastReq records the most recent request for assertions.
	lastReq pipeline.QueryRequest
}

func (f *fakeQueryRunner) Query(_ context.Context, req pipeline.QueryRequest) (pipeline.QueryResult, error) {
	f.lastReq = req
	if f.err != nil {
		return pipeline.QueryResult{}, f.err
	}
	return f.res, nil
}

// fakeIngestRunner is a test double for the ingestion pipeline.
type fakeIngestRunner struct {
	res     ingestion.Result
	err     error
	lastReq ingestion.Request
}

func (f *fakeIngestRunner) Ingest(_ context.Context, req ingestion.Request, progress func(msg string)) (ingestion.Result, error) {
	f.lastReq = req
	if progress != nil {
		progress("resolving document")
	}
	if f.err != nil {
		return ingestion.Result{}, f.err
	}
	return f.res, nil
}

// okHandler is a trivial downstream handler used by middleware tests.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// discardLogger returns a logger that drops all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a Server with fake pipelines and an isolated
// Prometheus registry so tests do not pollute the default registerer.
func newTestServer(t *testing.T) (*Server, *fakeQueryRunner, *fakeIngestRunner) {
	t.Helper()

	queries := &fakeQueryRunner{}
	ingests := &fakeIngestRunner{}
	reg := prometheus.NewRegistry()

	s, err := New(queries, ingests, &Config{Logger: discardLogger()}, reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.stopRL)

	return s, queries, ingests
}

// TestNew_NilPipelines verifies constructor validation.
func TestNew_NilPipelines(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeIngestRunner{}, nil, prometheus.NewRegistry()); err == nil {
		t.Error("expected error for nil query pipeline")
	}
	if _, err := New(&fakeQueryRunner{}, nil, nil, prometheus.NewRegistry()); err == nil {
		t.Error("expected error for nil ingestion pipeline")
	}
}

// TestNew_Defaults verifies zero-value config fields are filled in.
func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	if s.cfg.Host != "127.0.0.1" {
		t.Errorf("host: want 127.0.0.1, got %q", s.cfg.Host)
	}
	if s.cfg.Port != 8080 {
		t.Errorf("port: want 8080, got %d", s.cfg.Port)
	}
	if s.cfg.RateLimit != defaultRateLimit {
		t.Errorf("rate limit: want %v, got %v", defaultRateLimit, s.cfg.RateLimit)
	}
}
