package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skywalkers77/astro-rag/internal/logging"
	"github.com/skywalkers77/astro-rag/internal/pipeline"
	"github.com/skywalkers77/astro-rag/internal/provider"
)

// NewAskCmd constructs the `astrorag ask` command, which answers a single
// natural language question from the indexed documents.
func NewAskCmd() *cobra.Command {
	var mode string
	var topK int
	var threshold float32
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from your indexed documents",
		Long: `Ask a natural language question. The answer is grounded in chunks
retrieved from the vector index and cites its sources.

In db-only mode (the default) the answer comes strictly from indexed
documents; when the best match scores below the threshold the command
prints NOT_IN_DB instead of guessing. In hybrid mode Google web search
results supplement the database context when configured.

Examples:
  astrorag ask "what powers a type Ia supernova?"
  astrorag ask --mode hybrid "latest JWST exoplanet findings"
  astrorag ask --top-k 12 --threshold 0.6 "how do Cepheids calibrate distance?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			stack, err := buildQueryStack(ctx, log, chatModel)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer stack.Close()

			res, err := stack.Pipeline.Query(ctx, pipeline.QueryRequest{
				Question:       args[0],
				Mode:           mode,
				TopK:           topK,
				ScoreThreshold: threshold,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(res.Answer)

			if res.Degraded {
				fmt.Fprintln(os.Stderr, "note: web search was unavailable, answer used database context only")
			}

			if showSources && len(res.SourceDetails) > 0 {
				fmt.Println("\nSources:")
				for i, src := range res.SourceDetails {
					fmt.Printf("  [%d] %s (score %.4f, confidence %s)\n", i+1, src.Source, src.Score, src.Confidence)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", pipeline.ModeDBOnly, "Answering mode: db-only or hybrid")
	cmd.Flags().IntVarP(&topK, "top-k", "k", getEnvInt("QUERY_TOP_K", 0), "Number of chunks to retrieve (0 = pipeline default)")
	cmd.Flags().Float32VarP(&threshold, "threshold", "t", getEnvFloat32("SCORE_THRESHOLD", 0), "Similarity threshold for db-only mode (0 = pipeline default)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", true, "Print the provenance list after the answer")

	return cmd
}
