package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/skywalkers77/astro-rag/internal/logging"
	"github.com/skywalkers77/astro-rag/internal/pipeline"
	"github.com/skywalkers77/astro-rag/internal/rag"
)

// handleQuery handles POST /api/query. It runs the full retrieval and
// generation pipeline and returns the answer with provenance.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req pipeline.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = pipeline.ModeDBOnly
	}

	start := time.Now()
	res, err := s.queries.Query(r.Context(), req)
	elapsed := time.Since(start)

	invalid := errors.Is(err, rag.ErrInvalidInput)
	s.metrics.queryRequestsTotal.WithLabelValues(mode, outcomeFromError(err, invalid)).Inc()
	s.metrics.queryDurationSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())

	if err != nil {
		if invalid {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error("query failed",
			slog.String("mode", mode),
			slog.Any("error", err),
		)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	log.Info("query answered",
		slog.String("mode", res.Mode),
		slog.Int("sources", len(res.Sources)),
		slog.Bool("degraded", res.Degraded),
		slog.Duration("duration", elapsed),
	)

	resp := queryResponse{
		QueryResult: res,
		ElapsedMS:   elapsed.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("query encode error", slog.Any("error", err))
	}
}
