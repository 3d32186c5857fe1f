package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushEmotion(t *testing.T) {
	m := NewSessionMemory("s")

	m.PushEmotion("anxious")
	assert.Equal(t, "anxious", m.Context.LastEmotion)
	assert.Equal(t, []string{"anxious"}, m.Emotions)

	m.PushEmotion("")
	assert.Equal(t, "anxious", m.Context.LastEmotion, "empty emotion is a no-op")
}

func TestBoundedLists(t *testing.T) {
	m := NewSessionMemory("s")

	for i := 0; i < maxEmotions+10; i++ {
		m.PushEmotion(fmt.Sprintf("e%d", i))
	}
	require.Len(t, m.Emotions, maxEmotions)
	// Truncation drops the oldest entries.
	assert.Equal(t, "e10", m.Emotions[0])
	assert.Equal(t, fmt.Sprintf("e%d", maxEmotions+9), m.Emotions[len(m.Emotions)-1])
}

func TestPushTurnWindow(t *testing.T) {
	m := NewSessionMemory("s")
	for i := 0; i < maxWindow+4; i++ {
		m.PushTurn("user", fmt.Sprintf("turn %d", i))
	}
	require.Len(t, m.Window, maxWindow)
	assert.Equal(t, "turn 4", m.Window[0].Content)

	recent := m.RecentWindow(3)
	require.Len(t, recent, 3)
	assert.Equal(t, fmt.Sprintf("turn %d", maxWindow+3), recent[2].Content)
}

func TestScalarsClamp(t *testing.T) {
	m := NewSessionMemory("s")
	assert.Equal(t, DefaultTrust, m.Context.Trust)

	m.RaiseTrust(200)
	assert.Equal(t, 100, m.Context.Trust)

	m.RaiseProgress(-5)
	assert.Equal(t, 0, m.Context.Progress)
}

func TestRecentDistinct(t *testing.T) {
	got := RecentDistinct([]string{"a", "b", "a", "c", "b"}, 2)
	assert.Equal(t, []string{"c", "b"}, got)

	got = RecentDistinct([]string{"a", "", "a"}, 5)
	assert.Equal(t, []string{"a"}, got)

	assert.Empty(t, RecentDistinct(nil, 3))
}

func TestExtractName(t *testing.T) {
	cases := []struct {
		utterance string
		want      string
	}{
		{"my name is Ada and I'm tired", "Ada"},
		{"you can call me Sam", "Sam"},
		{"I'm Priya", "Priya"},
		{"i'm anxious about tomorrow", ""},
		{"I'm fine thanks", ""},
		{"hello there", ""},
	}
	for _, c := range cases {
		t.Run(c.utterance, func(t *testing.T) {
			assert.Equal(t, c.want, ExtractName(c.utterance))
		})
	}
}

func TestDecodeTurnMetadata(t *testing.T) {
	t.Run("ValidMetadata", func(t *testing.T) {
		raw := `{"assessment":{"emotion":"sad","intensity":6,"themes":["loss"]},"technique":"validation"}`
		meta, ok := DecodeTurnMetadata(raw)
		require.True(t, ok)
		assert.Equal(t, "sad", meta.Assessment.Emotion)
		assert.Equal(t, "validation", meta.Technique)
	})

	t.Run("MalformedSkipped", func(t *testing.T) {
		for _, raw := range []string{"", "{}", "not json", `{"technique":"x"}`} {
			_, ok := DecodeTurnMetadata(raw)
			assert.False(t, ok, "raw=%q", raw)
		}
	})
}
