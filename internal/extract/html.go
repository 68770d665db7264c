package extract

import (
	"html"
	"regexp"
	"strings"
)

// Script and style bodies carry no indexable prose and are removed whole;
// remaining tags are stripped and entities decoded.
var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	htmlTag     = regexp.MustCompile(`(?s)<[^>]+>`)
	manySpaces  = regexp.MustCompile(`[ \t]+`)
	manyBlanks  = regexp.MustCompile(`\n{3,}`)
)

// extractHTML strips markup from an HTML document, keeping visible text with
// rough paragraph structure.
func extractHTML(content []byte) (string, error) {
	s := string(content)
	s = scriptBlock.ReplaceAllString(s, "")
	s = styleBlock.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, "\n")
	s = html.UnescapeString(s)
	s = manySpaces.ReplaceAllString(s, " ")

	// Trim each line, then collapse blank-line runs.
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = manyBlanks.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s), nil
}
