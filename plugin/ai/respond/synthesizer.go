// Package respond builds the outbound reply from persona rules, session
// memory, the turn assessment and sanitized model output.
package respond

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/assessment"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/memory"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/sanitize"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/timeout"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/ai"
)

const (
	// synthesisTemperature favors natural variation for the outward reply.
	synthesisTemperature = 0.8

	// maxReplyTokens bounds the output-length budget.
	maxReplyTokens = 350

	// historyWindow is how many recent turns are embedded in the prompt.
	historyWindow = 8
)

// Synthesizer produces the assistant reply for one turn. Its outward
// contract is "always returns speakable text".
type Synthesizer interface {
	Respond(ctx context.Context, utterance string, a *assessment.Assessment, mem *memory.SessionMemory) string
}

// Service implements Synthesizer on top of the completion service.
type Service struct {
	llm ai.CompletionService
}

// NewService creates a new synthesizer.
func NewService(llm ai.CompletionService) *Service {
	return &Service{llm: llm}
}

// Respond generates, sanitizes and safety-checks the reply. Generation
// failure or an empty result degrades to the warm fallback line; a denylist
// hit substitutes the fixed safe fallback.
func (s *Service) Respond(ctx context.Context, utterance string, a *assessment.Assessment, mem *memory.SessionMemory) string {
	// Disclosed crisis ideation never goes through the normal technique
	// flow, regardless of what the model would have produced.
	if IsCrisisDisclosure(utterance) {
		return CrisisSupportLine
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.SynthesisTimeout)
	defer cancel()

	raw, err := s.llm.Complete(ctx, s.buildPrompt(utterance, a, mem), ai.Options{
		Temperature: synthesisTemperature,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		slog.Warn("reply generation failed, using fallback",
			"session_uid", mem.SessionUID, "error", err)
		return sanitize.WarmFallback
	}

	return postProcess(raw)
}

// postProcess applies the fixed sanitation chain: markup stripping,
// re-segmentation, denylist enforcement, persona-leak removal and directive
// softening, in that order.
func postProcess(raw string) string {
	text := sanitize.CleanProse(raw)
	text = sanitize.Paragraphs(text)

	if sanitize.IsUnsafe(text) {
		return sanitize.SafeFallback
	}

	text = sanitize.RemovePersonaLeaks(text)
	text = sanitize.SoftenDirectives(text)
	text = sanitize.Paragraphs(text)
	if text == "" {
		return sanitize.WarmFallback
	}
	return text
}

func (s *Service) buildPrompt(utterance string, a *assessment.Assessment, mem *memory.SessionMemory) []ai.Message {
	messages := []ai.Message{{Role: "system", Content: PersonaRules}}

	var sb strings.Builder
	sb.WriteString("What you know about this conversation so far:\n")
	if mem.Preferences.Name != "" {
		fmt.Fprintf(&sb, "- The person asked to be called %s.\n", mem.Preferences.Name)
	}
	if themes := memory.RecentDistinct(mem.Topics, 5); len(themes) > 0 {
		fmt.Fprintf(&sb, "- Recurring themes: %s.\n", strings.Join(themes, ", "))
	}
	if emotions := memory.RecentDistinct(mem.Emotions, 4); len(emotions) > 0 {
		fmt.Fprintf(&sb, "- Recent emotional states: %s.\n", strings.Join(emotions, ", "))
	}
	if techniques := memory.RecentDistinct(mem.Techniques, 3); len(techniques) > 0 {
		fmt.Fprintf(&sb, "- Techniques already tried: %s.\n", strings.Join(techniques, ", "))
	}
	fmt.Fprintf(&sb, "- Trust level %d/100, progress %d/100.\n", mem.Context.Trust, mem.Context.Progress)

	sb.WriteString("\nAssessment of the new message:\n")
	fmt.Fprintf(&sb, "- Primary emotion: %s (intensity %d/10).\n", a.Emotion, a.Intensity)
	if len(a.Themes) > 0 {
		fmt.Fprintf(&sb, "- Themes: %s.\n", strings.Join(a.Themes, ", "))
	}
	if len(a.Distortions) > 0 {
		fmt.Fprintf(&sb, "- Thought patterns noticed: %s.\n", strings.Join(a.Distortions, ", "))
	}
	fmt.Fprintf(&sb, "- Suggested technique: %s. Focus: %s.\n", a.TopTechnique(), a.Focus)
	messages = append(messages, ai.Message{Role: "system", Content: sb.String()})

	for _, turn := range mem.RecentWindow(historyWindow) {
		role := "user"
		if turn.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}

	messages = append(messages, ai.Message{Role: "user", Content: utterance})
	return messages
}

// Ensure Service implements Synthesizer.
var _ Synthesizer = (*Service)(nil)
