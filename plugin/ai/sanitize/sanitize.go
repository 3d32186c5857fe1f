// Package sanitize normalizes model output into clean prose and extracts
// decodable JSON payloads from raw completion text.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}\s+.*$`)
	emphasisPattern  = regexp.MustCompile(`(\*\*|__|\*|_)`)
	tableRowPattern  = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
	separatorPattern = regexp.MustCompile(`(?m)^\s*[-=*_]{3,}\s*$`)
	bulletPattern    = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	multiBlankLines  = regexp.MustCompile(`\n{3,}`)
	multiSpaces      = regexp.MustCompile(`[ \t]{2,}`)
)

// CleanJSON strips code-fence markup and control characters from a raw
// completion so the remaining text can be handed to a strict JSON decoder.
// It narrows the input to the outermost {...} region when one is present.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// Drop control characters that break strict decoding.
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// CleanProse strips markup artifacts (emphasis markers, headings, table-like
// separators, list bullets) down to plain prose.
func CleanProse(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = tableRowPattern.ReplaceAllString(s, "")
	s = separatorPattern.ReplaceAllString(s, "")
	s = headingPattern.ReplaceAllString(s, "")
	s = bulletPattern.ReplaceAllString(s, "")
	s = emphasisPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "`", "")
	s = multiSpaces.ReplaceAllString(s, " ")
	s = multiBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Paragraphs re-segments text into short paragraphs and guarantees each one
// ends with terminal punctuation.
func Paragraphs(s string) string {
	blocks := strings.Split(s, "\n\n")
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(strings.Join(strings.Fields(block), " "))
		if block == "" {
			continue
		}
		runes := []rune(block)
		if !strings.ContainsRune(".!?…", runes[len(runes)-1]) {
			block += "."
		}
		out = append(out, block)
	}
	return strings.Join(out, "\n\n")
}
