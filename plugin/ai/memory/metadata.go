package memory

import "encoding/json"

// TurnAssessment is the persisted shape of one turn's structured assessment,
// stored in the assistant message's metadata column.
type TurnAssessment struct {
	Emotion     string   `json:"emotion"`
	Intensity   int      `json:"intensity"`
	Themes      []string `json:"themes"`
	Distortions []string `json:"distortions"`
	Techniques  []string `json:"techniques"`
	Focus       string   `json:"focus"`
	RiskScore   int      `json:"risk_score"`
}

// TurnMetadata is the metadata record attached to an assistant message.
type TurnMetadata struct {
	Assessment *TurnAssessment `json:"assessment,omitempty"`
	Technique  string          `json:"technique,omitempty"`
	Focus      string          `json:"focus,omitempty"`
	RiskScore  int             `json:"risk_score,omitempty"`
}

// DecodeTurnMetadata parses a message metadata JSON string. Malformed or
// empty metadata yields (nil, false) rather than an error: reconstruction
// skips such messages instead of aborting.
func DecodeTurnMetadata(raw string) (*TurnMetadata, bool) {
	if raw == "" || raw == "{}" {
		return nil, false
	}
	var meta TurnMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, false
	}
	if meta.Assessment == nil {
		return nil, false
	}
	return &meta, true
}
