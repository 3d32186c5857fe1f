// Package closing decides whether a conversation has reached a natural end
// and supplies the canned line that closes it.
package closing

import (
	"math/rand"
	"regexp"
	"strings"
)

// Classifier detects farewell, gratitude and acceptance phrasing in the
// latest user utterance. It is a pure heuristic over normalized text.
type Classifier struct {
	// Phrases checked by containment, prefix or suffix.
	phrases []string

	// Patterns anchored at string start or end.
	patterns []*regexp.Regexp
}

// The phrase list is configurable data, not behavior to reproduce verbatim.
var defaultClosingPhrases = []string{
	"goodbye",
	"bye",
	"see you",
	"talk to you later",
	"thanks, that helps",
	"thank you, that helps",
	"that helps a lot",
	"i feel better now",
	"i'm feeling better",
	"that's all for now",
	"gotta go",
	"have to go",
	"good night",
}

var defaultClosingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(ok(ay)?[,.!\s]*)?(thanks|thank you)\b`),
	regexp.MustCompile(`\b(thanks|thank you)[,.!\s]*(so much|a lot)?[.!\s]*$`),
	regexp.MustCompile(`^(bye|goodbye|good night)\b`),
	regexp.MustCompile(`\b(bye|goodbye|good night)[.!\s]*$`),
	regexp.MustCompile(`\bi (feel|am feeling) (much )?better( now)?\b`),
	regexp.MustCompile(`\bthat('s| is| was) (really )?helpful\b`),
}

// NewClassifier creates a classifier with the default phrase lists.
func NewClassifier() *Classifier {
	return &Classifier{
		phrases:  defaultClosingPhrases,
		patterns: defaultClosingPatterns,
	}
}

// NewClassifierWithRules creates a classifier with custom phrase data.
func NewClassifierWithRules(phrases []string, patterns []*regexp.Regexp) *Classifier {
	return &Classifier{phrases: phrases, patterns: patterns}
}

// ShouldClose reports whether the utterance reads as a conversation close.
func (c *Classifier) ShouldClose(utterance string) bool {
	normalized := strings.ToLower(strings.TrimSpace(utterance))
	if normalized == "" {
		return false
	}

	for _, re := range c.patterns {
		if re.MatchString(normalized) {
			return true
		}
	}

	for _, phrase := range c.phrases {
		// Word-boundary containment so "maybe" never matches "bye".
		if normalized == phrase ||
			strings.HasPrefix(normalized, phrase+" ") ||
			strings.HasSuffix(normalized, " "+phrase) ||
			strings.Contains(normalized, " "+phrase+" ") {
			return true
		}
	}

	return false
}

// Closing lines used when the synthesizer step is skipped.
var closingLines = []string{
	"I'm really glad we talked today. Take gentle care of yourself, and come back whenever you need to.",
	"Thank you for sharing this time with me. Be kind to yourself until we speak again.",
	"I'm glad this helped. You're always welcome back here whenever you want to talk.",
	"Take care of yourself. I'll be here whenever you'd like to pick this up again.",
}

// Lines exposes the canned closing set, mainly for tests.
func Lines() []string {
	out := make([]string, len(closingLines))
	copy(out, closingLines)
	return out
}

// PickLine selects one closing line using the injected random source so tests
// can pin the selection.
func PickLine(rng *rand.Rand) string {
	if rng == nil {
		return closingLines[0]
	}
	return closingLines[rng.Intn(len(closingLines))]
}
