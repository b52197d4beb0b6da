package extractor

import (
	"regexp"
	"strings"
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	lineEdgeSpaceRe   = regexp.MustCompile(` ?\n ?`)
	blankRunRe        = regexp.MustCompile(`\n{3,}`)
)

// NormalizeWhitespace collapses horizontal whitespace to single spaces,
// keeps at most one blank line between paragraphs, and trims both ends.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return ""
	}
	t := strings.ReplaceAll(s, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\r", "\n")
	t = horizontalSpaceRe.ReplaceAllString(t, " ")
	t = lineEdgeSpaceRe.ReplaceAllString(t, "\n")
	t = blankRunRe.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}
