// Command astrorag is the entry point for the astro-rag document question
// answering system. It provides a CLI (via Cobra) for ingesting documents
// and asking questions, plus an HTTP server mode for API access.
package main

import (
	"fmt"
	"os"

	"github.com/skywalkers77/astro-rag/cmd/astrorag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
