// Package extract turns uploaded document bytes into plain text ready for
// chunking. Dispatch is by file extension with a content-based fallback: when
// the format-specific extractor fails or yields nothing, the bytes are
// re-tried as plain UTF-8 text and finally as runs of printable bytes, so a
// mislabelled upload still produces something indexable.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract extracts text from content, using the extension of name to pick the
// extractor. It returns an error only when every strategy, including the raw
// printable-run fallback, produced no usable text.
func (e *Extractor) Extract(name string, content []byte) (string, error) {
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(name)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("extract: empty input")
	}

	text, err := extractByExtension(content, ext)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	// Format-specific extraction failed or came back empty; fall back to
	// treating the bytes as text before giving up.
	if fallback, ferr := extractPlain(content); ferr == nil && looksLikeText(fallback) {
		return fallback, nil
	}
	if runs := printableRuns(content); strings.TrimSpace(runs) != "" {
		return runs, nil
	}

	if err != nil {
		return "", fmt.Errorf("extract: no usable text (%s): %w", ext, err)
	}
	return "", fmt.Errorf("extract: no usable text (%s)", ext)
}

// extractByExtension dispatches to the format-specific extractor.
func extractByExtension(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".html", ".htm":
		return extractHTML(content)
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	default:
		// Unknown extension: treat as plain text.
		return extractPlain(content)
	}
}

// looksLikeText reports whether s is mostly printable, i.e. safe to index as
// plain text rather than binary noise.
func looksLikeText(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	printable := 0
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || (r >= 0x20 && r != 0xFFFD) {
			printable++
		}
	}
	return printable*10 >= len([]rune(s))*9
}

// minRunLength is the shortest run of printable bytes worth keeping when
// scraping text out of an otherwise binary blob.
const minRunLength = 4

// printableRuns scrapes runs of printable ASCII out of arbitrary bytes. This
// is the extractor of last resort for binary formats we do not understand.
func printableRuns(content []byte) string {
	var b strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= minRunLength {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(run)
		}
		run = run[:0]
	}
	for _, c := range content {
		if c >= 0x20 && c < 0x7F {
			run = append(run, c)
		} else {
			flush()
		}
	}
	flush()
	return b.String()
}
