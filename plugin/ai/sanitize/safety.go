package sanitize

import (
	"regexp"
	"strings"
)

// The phrase lists below are configurable data, not behavior to reproduce
// verbatim. Callers may replace them before serving traffic.

// UnsafeIndicators is the denylist of unsafe-content markers. Generated text
// matching any of these is discarded in favor of SafeFallback.
var UnsafeIndicators = []string{
	"how to kill",
	"how to harm",
	"ways to end your life",
	"methods of suicide",
	"overdose on",
	"lethal dose",
	"i diagnose you",
	"you have a disorder",
	"your diagnosis is",
	"i prescribe",
	"prescribe you",
	"take this medication",
	"increase your dosage",
	"stop taking your medication",
	"legal advice",
}

// SafeFallback replaces generated text that tripped the denylist.
const SafeFallback = "I care about how you're feeling, and some of what came up is " +
	"beyond what I can safely talk through. If you're in distress, please reach out " +
	"to someone you trust or a local crisis line. I'm still here to listen."

// WarmFallback is returned when generation fails or comes back empty.
const WarmFallback = "I'm here with you. What's been on your mind?"

var personaLeakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bas an ai( language model| assistant)?,?\s*`),
	regexp.MustCompile(`(?i)\bas your therapist,?\s*`),
	regexp.MustCompile(`(?i)\bi am an ai( language model| assistant)?,?\s*`),
	regexp.MustCompile(`(?i)\bi'm just an ai,?\s*`),
}

var directivePatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\byou should\b`), "you might consider"},
	{regexp.MustCompile(`(?i)\byou must\b`), "it could help to"},
	{regexp.MustCompile(`(?i)\byou need to\b`), "you might want to"},
	{regexp.MustCompile(`(?i)\byou have to\b`), "it may be worth trying to"},
}

// IsUnsafe reports whether generated text contains a denylisted indicator.
func IsUnsafe(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range UnsafeIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// RemovePersonaLeaks strips phrasing that breaks the assistant persona.
func RemovePersonaLeaks(text string) string {
	for _, re := range personaLeakPatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// SoftenDirectives rewrites hard directive phrasing into invitations.
func SoftenDirectives(text string) string {
	for _, d := range directivePatterns {
		text = d.re.ReplaceAllString(text, d.replacement)
	}
	return text
}
