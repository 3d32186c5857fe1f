package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/memory"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/sanitize"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/timeout"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/ai"
)

// extractionTemperature favors determinism over creativity for this step.
const extractionTemperature = 0.1

// historyWindow is how many recent turns are embedded in the prompt.
const historyWindow = 8

const extractionSystemPrompt = `You analyze one message from a person talking to an emotional-support assistant.
Respond with a single JSON object and nothing else, using exactly this shape:
{
  "emotion": "one lowercase word for the primary emotion",
  "intensity": 1-10,
  "themes": ["up to 4 short theme strings"],
  "distortions": ["zero or more cognitive distortion identifiers, snake_case"],
  "techniques": ["1-3 recommended support technique identifiers, snake_case, best first"],
  "focus": "one short therapeutic focus label, snake_case",
  "risk_score": 0-10
}
risk_score reflects conversational risk cues only, not a clinical judgment.`

// Service implements Analyzer on top of the completion service.
type Service struct {
	llm ai.CompletionService
}

// NewService creates a new analyzer.
func NewService(llm ai.CompletionService) *Service {
	return &Service{llm: llm}
}

// Analyze extracts an assessment for the utterance. On success the new
// emotion, themes, techniques and patterns are pushed into mem. Any failure
// along the way degrades to per-field or whole-record defaults; the caller
// always receives a usable assessment.
func (s *Service) Analyze(ctx context.Context, utterance string, mem *memory.SessionMemory) *Assessment {
	ctx, cancel := context.WithTimeout(ctx, timeout.ExtractionTimeout)
	defer cancel()

	raw, err := s.llm.Complete(ctx, s.buildPrompt(utterance, mem), ai.Options{
		Temperature: extractionTemperature,
		MaxTokens:   400,
	})
	if err != nil {
		slog.Warn("assessment extraction failed, using defaults",
			"session_uid", mem.SessionUID, "error", err)
		return Default()
	}

	a := Parse(raw)
	s.fold(a, mem)
	return a
}

func (s *Service) buildPrompt(utterance string, mem *memory.SessionMemory) []ai.Message {
	messages := []ai.Message{{Role: "system", Content: extractionSystemPrompt}}

	window := mem.RecentWindow(historyWindow)
	if len(window) > 0 {
		var sb strings.Builder
		sb.WriteString("Recent conversation:\n")
		for _, turn := range window {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
		messages = append(messages, ai.Message{Role: "system", Content: sb.String()})
	}

	messages = append(messages, ai.Message{Role: "user", Content: utterance})
	return messages
}

// fold pushes the extraction results into the session memory, subject to the
// memory package's bounded-growth rules.
func (s *Service) fold(a *Assessment, mem *memory.SessionMemory) {
	mem.PushEmotion(a.Emotion)
	themes := a.Themes
	if len(themes) > 2 {
		themes = themes[:2]
	}
	mem.PushTopics(themes...)
	mem.PushPatterns(a.Distortions...)
	mem.PushTechnique(a.TopTechnique())
	mem.RaiseTrust(1)
}

// Parse decodes a raw completion into an assessment with per-field fallback:
// a partially well-formed extraction is not discarded because one field was
// off-shape. Only total decode failure yields the fully-default record.
func Parse(raw string) *Assessment {
	cleaned := sanitize.CleanJSON(raw)
	if cleaned == "" {
		return Default()
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		slog.Debug("assessment decode failed", "error", err)
		return Default()
	}

	a := Default()
	if v, ok := stringField(fields, "emotion"); ok {
		a.Emotion = strings.ToLower(v)
	}
	if v, ok := intField(fields, "intensity"); ok {
		a.Intensity = clamp(v, 1, 10)
	}
	if v, ok := stringListField(fields, "themes"); ok {
		a.Themes = v
	}
	if v, ok := stringListField(fields, "distortions"); ok {
		a.Distortions = v
	}
	if v, ok := stringListField(fields, "techniques"); ok && len(v) > 0 {
		a.Techniques = v
	}
	if v, ok := stringField(fields, "focus"); ok {
		a.Focus = v
	}
	if v, ok := intField(fields, "risk_score"); ok {
		a.RiskScore = clamp(v, 0, 10)
	}
	return a
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func intField(fields map[string]json.RawMessage, key string) (int, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	// Models sometimes emit numbers as floats or quoted strings.
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &parsed); err == nil {
			return int(parsed), true
		}
	}
	return 0, false
}

func stringListField(fields map[string]json.RawMessage, key string) ([]string, bool) {
	raw, ok := fields[key]
	if !ok {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		// A bare string still carries signal; treat it as a one-element list.
		var single string
		if err := json.Unmarshal(raw, &single); err != nil || strings.TrimSpace(single) == "" {
			return nil, false
		}
		list = []string{single}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Ensure Service implements Analyzer.
var _ Analyzer = (*Service)(nil)
