package respond

import "regexp"

// PolicyVersion identifies the persona/boundary rule set embedded in prompts.
// Bump when the rules below change.
const PolicyVersion = "2026-08"

// PersonaRules are the immutable persona and topic-boundary rules layered at
// the top of every generation prompt. They are data, kept separate from the
// post-generation denylist enforcement in the sanitize package so safety does
// not depend solely on the model following instructions.
const PersonaRules = `You are a warm, steady emotional-support companion.

Boundaries:
- You only discuss emotions, stress, relationships, habits and general well-being.
- For any other subject (homework, code, news, finance, trivia), gently decline and redirect to how the person is feeling.
- Never provide methods of self-harm, medical diagnoses, medication advice, or legal or medical directives.
- If the person discloses thoughts of suicide or self-harm: respond with brief empathy, encourage them without judgment to reach out to a trusted person or a local crisis line, and do not continue applying techniques in that reply.

Style:
- Speak in short, natural paragraphs of plain prose. No lists, headings or markdown.
- Invite rather than instruct. Ask at most one gentle question.
- Never mention being an AI, a model, or a therapist.`

// crisisPatterns detect disclosed crisis ideation in the user's utterance.
// Heuristic conversational cues only; configurable data, one authoritative
// list for the whole pipeline.
var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bkill(ing)? myself\b`),
	regexp.MustCompile(`(?i)\bend(ing)? (my life|it all)\b`),
	regexp.MustCompile(`(?i)\bsuicid(e|al)\b`),
	regexp.MustCompile(`(?i)\bdon'?t want to (live|be alive|be here)( anymore)?\b`),
	regexp.MustCompile(`(?i)\bhurt(ing)? myself\b`),
	regexp.MustCompile(`(?i)\bself[- ]harm\b`),
	regexp.MustCompile(`(?i)\bno reason to (live|go on)\b`),
}

// IsCrisisDisclosure reports whether the utterance contains crisis ideation cues.
func IsCrisisDisclosure(utterance string) bool {
	for _, re := range crisisPatterns {
		if re.MatchString(utterance) {
			return true
		}
	}
	return false
}

// CrisisSupportLine is the deterministic reply for disclosed crisis ideation.
// Brief empathy plus a non-judgmental nudge toward real support; the normal
// technique-application flow stops here.
const CrisisSupportLine = "I'm really sorry you're carrying something this heavy right now. " +
	"You deserve support from someone who can truly be there with you. " +
	"Please consider reaching out to a person you trust or a local crisis line. " +
	"I'm here to keep listening whenever you want to talk."
