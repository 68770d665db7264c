// Package commands defines all Cobra CLI commands for the astrorag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/skywalkers77/astro-rag/internal/audit"
	"github.com/skywalkers77/astro-rag/internal/config"
	"github.com/skywalkers77/astro-rag/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "astrorag",
		Short: "astro-rag — retrieval-augmented question answering over your documents",
		Long: `astro-rag ingests documents (text, PDF, DOCX, HTML), splits them into
boundary-aware chunks, indexes them in Qdrant for similarity search, and
answers natural-language questions grounded in the retrieved chunks.

Two answering modes are available:
  db-only  answer strictly from indexed documents; refuses when evidence
           is insufficient (returns NOT_IN_DB)
  hybrid   prefers indexed documents but supplements with Google web
           search when configured

Model and embedding providers are selected via environment variables
(MODEL_PROVIDER, EMBEDDING_PROVIDER) or a YAML config file
(~/.astrorag/config.yaml). See 'astrorag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.astrorag/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
