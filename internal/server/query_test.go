package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skywalkers77/astro-rag/internal/pipeline"
	"github.com/skywalkers77/astro-rag/internal/rag"
)

// TestHandleQuery_OK verifies a successful query returns 200 with the
// pipeline result and request timing.
func TestHandleQuery_OK(t *testing.T) {
	t.Parallel()

	s, queries, _ := newTestServer(t)
	queries.res = pipeline.QueryResult{
		Answer: "Cepheid variables pulsate with a period-luminosity relation.",
		Mode:   pipeline.ModeDBOnly,
		Sources: []rag.ProvenanceEntry{
			{ID: "c1", Source: "cepheids.txt", Score: 0.91},
		},
		Timestamp: time.Now().UTC(),
	}

	body := strings.NewReader(`{"question":"What are Cepheid variables?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp queryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != queries.res.Answer {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ID != "c1" {
		t.Errorf("sources: got %+v", resp.Sources)
	}
	if resp.ElapsedMS < 0 {
		t.Errorf("elapsed_ms: want >= 0, got %d", resp.ElapsedMS)
	}
	if queries.lastReq.Question != "What are Cepheid variables?" {
		t.Errorf("question not forwarded: got %q", queries.lastReq.Question)
	}
}

// TestHandleQuery_InvalidBody verifies malformed JSON receives 400.
func TestHandleQuery_InvalidBody(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// TestHandleQuery_InvalidInput verifies pipeline input validation errors
// map to 400, not 500.
func TestHandleQuery_InvalidInput(t *testing.T) {
	t.Parallel()

	s, queries, _ := newTestServer(t)
	queries.err = fmt.Errorf("pipeline: question must not be empty: %w", rag.ErrInvalidInput)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":""}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d — body: %s", w.Code, w.Body.String())
	}
}

// TestHandleQuery_PipelineError verifies upstream failures map to 500 and
// the response body does not leak internal error detail.
func TestHandleQuery_PipelineError(t *testing.T) {
	t.Parallel()

	s, queries, _ := newTestServer(t)
	queries.err = fmt.Errorf("retriever: embed query: %w", rag.ErrEmbeddingService)

	body := strings.NewReader(`{"question":"What is a pulsar?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "embedding") {
		t.Errorf("response leaks internal error detail: %s", w.Body.String())
	}
}

// TestHandleQuery_CounterIncremented verifies the outcome counter reflects
// handler results.
func TestHandleQuery_CounterIncremented(t *testing.T) {
	t.Parallel()

	s, queries, _ := newTestServer(t)
	queries.err = errors.New("backend down")

	body := strings.NewReader(`{"question":"anything","mode":"hybrid"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	c := s.metrics.queryRequestsTotal.WithLabelValues("hybrid", outcomeError)
	got := testCounterValue(t, c)
	if got != 1 {
		t.Errorf("query counter: want 1, got %v", got)
	}
}
