package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/assessment"
)

func turn(intensity int, techniques ...string) *assessment.Assessment {
	a := assessment.Default()
	a.Intensity = intensity
	a.Techniques = techniques
	return a
}

func TestSummarizeEmptySession(t *testing.T) {
	g := NewAggregator()
	assert.Nil(t, g.Summarize("nope"))
}

func TestSummarize(t *testing.T) {
	g := NewAggregator()
	g.RecordTurn("s1", turn(8, "grounding"))
	g.RecordTurn("s1", turn(6, "grounding", "reframing"))
	g.RecordTurn("s1", turn(4, "breathing"))

	s := g.Summarize("s1")
	require.NotNil(t, s)
	assert.Equal(t, 3, s.TurnCount)
	assert.InDelta(t, 6.0, s.MeanIntensity, 0.001)
	assert.Equal(t, 3, s.DistinctTechniques)
	assert.Equal(t, TrendImproving, s.Trend)
}

func TestTrend(t *testing.T) {
	t.Run("Struggling", func(t *testing.T) {
		g := NewAggregator()
		g.RecordTurn("s", turn(3))
		g.RecordTurn("s", turn(7))
		assert.Equal(t, TrendStruggling, g.Summarize("s").Trend)
	})

	t.Run("Steady", func(t *testing.T) {
		g := NewAggregator()
		g.RecordTurn("s", turn(5))
		g.RecordTurn("s", turn(5))
		assert.Equal(t, TrendSteady, g.Summarize("s").Trend)
	})

	t.Run("SingleTurn", func(t *testing.T) {
		g := NewAggregator()
		g.RecordTurn("s", turn(5))
		assert.Equal(t, TrendSteady, g.Summarize("s").Trend)
	})
}

func TestForget(t *testing.T) {
	g := NewAggregator()
	g.RecordTurn("s", turn(5))
	g.Forget("s")
	assert.Nil(t, g.Summarize("s"))
}
