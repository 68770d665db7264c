package ingestion

import (
	"net/url"
	"path"
	"strings"
)

// Chunk metadata keys written by the pipeline.
const (
	// metaFormat records the inferred document format (pdf, docx, html,
	// markdown, text, binary).
	metaFormat = "format"
	// metaOrigin records how the document arrived (inline, url, upload).
	metaOrigin = "origin"
	// metaURL records the fetch URL for url-origin documents.
	metaURL = "url"
)

// formatByExtension maps file extensions to canonical format labels.
var formatByExtension = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".html": "html",
	".htm":  "html",
	".md":   "markdown",
	".rst":  "markdown",
	".txt":  "text",
}

// inferFormat returns the best-effort format label for a filename or URL.
// Unknown extensions are labelled "text" since that is how they are
// extracted; an empty name is "text" too.
func inferFormat(name string) string {
	// For URLs, strip the query and fragment before looking at the extension.
	if parsed, err := url.Parse(name); err == nil && parsed.Path != "" {
		name = parsed.Path
	}
	ext := strings.ToLower(path.Ext(name))
	if format, ok := formatByExtension[ext]; ok {
		return format
	}
	return "text"
}
