package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/skywalkers77/astro-rag/internal/logging"
	"github.com/skywalkers77/astro-rag/internal/provider"
	"github.com/skywalkers77/astro-rag/internal/server"
	"github.com/skywalkers77/astro-rag/internal/tracing"
)

// NewServeCmd constructs the `astrorag serve` command, which starts the
// HTTP API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the astro-rag HTTP API server",
		Long: `Start the astro-rag HTTP server on localhost.

The server exposes:
  POST /api/query    answer a question with provenance
  POST /api/ingest   ingest a document (text or URL)
  GET  /api/health   liveness, version, uptime
  GET  /api/ready    dependency readiness (qdrant, store, model)
  GET  /metrics      Prometheus metrics

Set ASTRORAG_API_KEY to require Bearer authentication on /api/query and
/api/ingest.

Examples:
  astrorag serve
  astrorag serve --port 9090
  MODEL_PROVIDER=openai astrorag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "gemini")))

			queries, err := buildQueryStack(ctx, log, chatModel)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer queries.Close()

			ingests, err := buildIngestStack(ctx, log, queries)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(queries.Index.Client()),
				server.NewStorePinger(queries.Store),
				server.NewLLMPinger(chatModel, getEnvOrDefault("MODEL_PROVIDER", "gemini")),
			}

			srv, err := server.New(queries.Pipeline, ingests.Pipeline, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				APIKey:    os.Getenv("ASTRORAG_API_KEY"),
				RateLimit: float64(getEnvFloat32("RATE_LIMIT_RPS", 0)),
				RateBurst: getEnvInt("RATE_LIMIT_BURST", 0),
			}, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("SERVER_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("SERVER_PORT", 8080), "TCP port to listen on")

	return cmd
}
