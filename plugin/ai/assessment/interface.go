// Package assessment turns an unstructured user utterance into a validated
// per-turn assessment record via the completion service.
package assessment

import (
	"context"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/memory"
)

// Assessment is the structured interpretation of a single user utterance.
// Every field is always present with a well-typed value; consumers never see
// a missing-field fault.
type Assessment struct {
	Emotion     string   `json:"emotion"`
	Intensity   int      `json:"intensity"` // 1-10
	Themes      []string `json:"themes"`
	Distortions []string `json:"distortions"`
	Techniques  []string `json:"techniques"` // ranked, best first
	Focus       string   `json:"focus"`
	RiskScore   int      `json:"risk_score"` // 0-10, heuristic conversational cue only
}

// Neutral defaults substituted per field when extraction fails or comes back
// off-shape.
const (
	DefaultEmotion   = "neutral"
	DefaultIntensity = 5
	DefaultTechnique = "active_listening"
	DefaultFocus     = "emotional_support"
)

// Default returns the fully-default assessment used when the whole
// extraction is unusable.
func Default() *Assessment {
	return &Assessment{
		Emotion:     DefaultEmotion,
		Intensity:   DefaultIntensity,
		Themes:      []string{},
		Distortions: []string{},
		Techniques:  []string{DefaultTechnique},
		Focus:       DefaultFocus,
		RiskScore:   0,
	}
}

// TopTechnique returns the highest-ranked recommended technique.
func (a *Assessment) TopTechnique() string {
	if len(a.Techniques) == 0 {
		return DefaultTechnique
	}
	return a.Techniques[0]
}

// Metadata converts the assessment into its persisted message-metadata shape.
func (a *Assessment) Metadata() *memory.TurnMetadata {
	return &memory.TurnMetadata{
		Assessment: &memory.TurnAssessment{
			Emotion:     a.Emotion,
			Intensity:   a.Intensity,
			Themes:      a.Themes,
			Distortions: a.Distortions,
			Techniques:  a.Techniques,
			Focus:       a.Focus,
			RiskScore:   a.RiskScore,
		},
		Technique: a.TopTechnique(),
		Focus:     a.Focus,
		RiskScore: a.RiskScore,
	}
}

// Analyzer extracts an assessment from an utterance plus session memory.
// Implementations never return an error: the reply pipeline has no sensible
// way to refuse to answer a received message.
type Analyzer interface {
	Analyze(ctx context.Context, utterance string, mem *memory.SessionMemory) *Assessment
}
