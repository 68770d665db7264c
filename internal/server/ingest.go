package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/skywalkers77/astro-rag/internal/ingestion"
	"github.com/skywalkers77/astro-rag/internal/logging"
	"github.com/skywalkers77/astro-rag/internal/rag"
)

// handleIngest handles POST /api/ingest. It accepts either raw text or a
// fetchable URL plus filename, runs the ingestion pipeline, and returns the
// generated document and chunk ids.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	progress := func(msg string) {
		log.Debug("ingest progress", slog.String("step", msg))
	}

	start := time.Now()
	res, err := s.ingests.Ingest(r.Context(), ingestion.Request{
		Text:     req.Text,
		URL:      req.URL,
		Filename: req.Filename,
	}, progress)
	elapsed := time.Since(start)

	invalid := errors.Is(err, rag.ErrInvalidInput)
	s.metrics.ingestDocumentsTotal.WithLabelValues(outcomeFromError(err, invalid)).Inc()
	s.metrics.ingestDurationSeconds.Observe(elapsed.Seconds())

	if err != nil {
		if invalid {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error("ingest failed", slog.Any("error", err))
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		return
	}

	s.metrics.ingestChunksTotal.Add(float64(len(res.ChunkIDs)))

	log.Info("document ingested",
		slog.String("document_id", res.DocumentID),
		slog.Int("chunks", len(res.ChunkIDs)),
		slog.Bool("placeholder", res.Placeholder),
		slog.Duration("duration", elapsed),
	)

	resp := ingestResponse{
		DocumentID:  res.DocumentID,
		ChunkIDs:    res.ChunkIDs,
		Chunks:      len(res.ChunkIDs),
		Placeholder: res.Placeholder,
		ElapsedMS:   elapsed.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("ingest encode error", slog.Any("error", err))
	}
}
