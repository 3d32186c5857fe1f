// Package progress derives session-level trend summaries from the sequence
// of turn assessments. The accumulator is process-local and fully derivable
// from persisted message metadata; losing it on restart loses nothing.
package progress

import (
	"sync"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/assessment"
)

// Trend labels derived from intensity movement across a session.
const (
	TrendImproving  = "improving"
	TrendSteady     = "steady"
	TrendStruggling = "struggling"
)

// Summary is the derived progress view of one session.
type Summary struct {
	TurnCount          int     `json:"turn_count"`
	MeanIntensity      float64 `json:"mean_intensity"`
	DistinctTechniques int     `json:"distinct_techniques"`
	Trend              string  `json:"trend"`
}

type accumulator struct {
	intensities []int
	techniques  map[string]bool
}

// Aggregator keeps per-session accumulators, created lazily on first turn.
// Thread-safe for concurrent access.
type Aggregator struct {
	mu       sync.RWMutex
	sessions map[string]*accumulator
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{sessions: make(map[string]*accumulator)}
}

// RecordTurn appends one assessment's intensity and techniques for the session.
func (g *Aggregator) RecordTurn(sessionUID string, a *assessment.Assessment) {
	g.mu.Lock()
	defer g.mu.Unlock()

	acc, ok := g.sessions[sessionUID]
	if !ok {
		acc = &accumulator{techniques: make(map[string]bool)}
		g.sessions[sessionUID] = acc
	}

	acc.intensities = append(acc.intensities, a.Intensity)
	for _, t := range a.Techniques {
		if t != "" {
			acc.techniques[t] = true
		}
	}
}

// Summarize returns the progress summary for a session, or nil when the
// session has no recorded turns.
func (g *Aggregator) Summarize(sessionUID string) *Summary {
	g.mu.RLock()
	defer g.mu.RUnlock()

	acc, ok := g.sessions[sessionUID]
	if !ok || len(acc.intensities) == 0 {
		return nil
	}

	sum := 0
	for _, v := range acc.intensities {
		sum += v
	}

	return &Summary{
		TurnCount:          len(acc.intensities),
		MeanIntensity:      float64(sum) / float64(len(acc.intensities)),
		DistinctTechniques: len(acc.techniques),
		Trend:              trendOf(acc.intensities),
	}
}

// Forget drops a session's accumulator, e.g. after the session completes.
func (g *Aggregator) Forget(sessionUID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionUID)
}

// trendOf compares the latest intensity to the first recorded one.
func trendOf(intensities []int) string {
	first := intensities[0]
	last := intensities[len(intensities)-1]
	switch {
	case last < first:
		return TrendImproving
	case last > first:
		return TrendStruggling
	default:
		return TrendSteady
	}
}
