package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skywalkers77/astro-rag/internal/embedder"
	"github.com/skywalkers77/astro-rag/internal/ingestion"
	"github.com/skywalkers77/astro-rag/internal/logging"
)

// NewIngestCmd constructs the `astrorag ingest` command, which runs the
// document ingestion pipeline to populate the chunk store and vector index.
func NewIngestCmd() *cobra.Command {
	var urls []string
	var files []string
	var text string
	var name string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into the chunk store and vector index",
		Long: `Fetch, extract, chunk, embed, and index documents so they become
retrievable by 'astrorag ask'.

Documents can be given as URLs (fetched over HTTP, extracted by file
type), local files (PDF, DOCX, HTML, plain text), or inline text. When
extraction fails a diagnostic placeholder chunk is stored so the
document is still visible in the index.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: astro-docs)
  EMBEDDING_PROVIDER   Embedding backend: gemini, ollama, openai (default: gemini)
  EMBEDDING_*          Provider-specific overrides (model, dimensions, endpoint)

Examples:
  astrorag ingest --url https://example.com/papers/cepheids.pdf
  astrorag ingest --file ./notes/stellar-evolution.docx
  astrorag ingest --text "Betelgeuse is a red supergiant." --name betelgeuse.txt
  CHUNK_PRESET=fine-grained astrorag ingest --file survey.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if len(urls) == 0 && len(files) == 0 && text == "" {
				return fmt.Errorf("ingest: at least one --url, --file, or --text is required")
			}

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			stack, err := buildIngestStack(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer stack.Close()

			progress := func(msg string) { log.Info(msg) }

			var requests []ingestion.Request
			if text != "" {
				requests = append(requests, ingestion.Request{Text: text, Filename: name})
			}
			for _, u := range urls {
				requests = append(requests, ingestion.Request{URL: u, Filename: filepath.Base(u)})
			}
			for _, f := range files {
				content, err := os.ReadFile(f)
				if err != nil {
					return fmt.Errorf("ingest: read %s: %w", f, err)
				}
				requests = append(requests, ingestion.Request{Content: content, Filename: filepath.Base(f)})
			}

			for _, req := range requests {
				res, err := stack.Pipeline.Ingest(ctx, req, progress)
				if err != nil {
					return fmt.Errorf("ingest: pipeline failed: %w", err)
				}
				log.Info("document ingested",
					slog.String("document_id", res.DocumentID),
					slog.Int("chunks", len(res.ChunkIDs)),
					slog.Bool("placeholder", res.Placeholder),
					slog.Duration("elapsed", res.Elapsed),
				)
			}

			log.Info("ingestion complete", slog.Int("documents", len(requests)))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Document URL to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Local document file to ingest (repeatable)")
	cmd.Flags().StringVar(&text, "text", "", "Inline text to ingest")
	cmd.Flags().StringVar(&name, "name", "", "Document name for inline text (e.g. notes.txt)")

	return cmd
}
