package memory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

// fakeLister serves a fixed message list and counts reads.
type fakeLister struct {
	mu       sync.Mutex
	messages []*store.Message
	err      error
	calls    int
}

func (f *fakeLister) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func assistantMessage(id int32, content string, meta *TurnMetadata) *store.Message {
	raw := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		raw = string(b)
	}
	return &store.Message{ID: id, SessionID: 1, Role: store.MessageRoleAssistant, Content: content, Metadata: raw}
}

func userMessage(id int32, content string) *store.Message {
	return &store.Message{ID: id, SessionID: 1, Role: store.MessageRoleUser, Content: content}
}

func sampleMeta(emotion string, themes ...string) *TurnMetadata {
	return &TurnMetadata{
		Assessment: &TurnAssessment{
			Emotion:    emotion,
			Intensity:  6,
			Themes:     themes,
			Techniques: []string{"grounding", "breathing"},
		},
		Technique: "grounding",
	}
}

func testSession() *store.Session {
	return &store.Session{ID: 1, UID: "sess-1", OwnerID: 1, Status: store.SessionStatusActive}
}

func TestGetRebuildsFromMessages(t *testing.T) {
	lister := &fakeLister{messages: []*store.Message{
		userMessage(1, "my name is Ada, I'm worried about work"),
		assistantMessage(2, "That sounds heavy.", sampleMeta("anxious", "work", "pressure", "sleep")),
		userMessage(3, "it keeps me up at night"),
		assistantMessage(4, "Let's slow down together.", sampleMeta("anxious", "sleep")),
	}}
	s := NewStore(lister)

	mem, err := s.Get(context.Background(), testSession())
	require.NoError(t, err)

	assert.Equal(t, "sess-1", mem.SessionUID)
	assert.Equal(t, "Ada", mem.Preferences.Name)
	assert.Equal(t, []string{"anxious", "anxious"}, mem.Emotions)
	// Only the top two themes per turn survive reconstruction.
	assert.Equal(t, []string{"work", "pressure", "sleep"}, mem.Topics)
	assert.Equal(t, []string{"grounding", "grounding"}, mem.Techniques)
	assert.Len(t, mem.Window, 4)

	// Context resets to neutral; progress follows conversation length.
	assert.Equal(t, DefaultEmotion, mem.Context.LastEmotion)
	assert.Equal(t, DefaultTrust, mem.Context.Trust)
	assert.Equal(t, 2*progressPerPair, mem.Context.Progress)
}

func TestGetCachesInstance(t *testing.T) {
	lister := &fakeLister{messages: []*store.Message{userMessage(1, "hi")}}
	s := NewStore(lister)
	session := testSession()

	first, err := s.Get(context.Background(), session)
	require.NoError(t, err)
	second, err := s.Get(context.Background(), session)
	require.NoError(t, err)

	assert.Same(t, first, second, "all readers share one live instance")
	assert.Equal(t, 1, lister.calls, "cache hit must not touch persistence")

	// Mutations through one reference are visible through the other.
	first.PushEmotion("hopeful")
	assert.Equal(t, "hopeful", second.Context.LastEmotion)
}

func TestGetRebuildIsDeterministic(t *testing.T) {
	lister := &fakeLister{messages: []*store.Message{
		userMessage(1, "I feel stuck"),
		assistantMessage(2, "Tell me more.", sampleMeta("frustrated", "stagnation")),
	}}
	s := NewStore(lister)
	session := testSession()

	first, err := s.Get(context.Background(), session)
	require.NoError(t, err)

	s.Invalidate(session.UID)
	second, err := s.Get(context.Background(), session)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Emotions, second.Emotions)
	assert.Equal(t, first.Topics, second.Topics)
	assert.Equal(t, first.Window, second.Window)
	assert.Equal(t, first.Context, second.Context)
}

func TestGetSkipsMalformedMetadata(t *testing.T) {
	lister := &fakeLister{messages: []*store.Message{
		userMessage(1, "hello"),
		&store.Message{ID: 2, SessionID: 1, Role: store.MessageRoleAssistant, Content: "hi", Metadata: "not json"},
		assistantMessage(3, "still here", sampleMeta("calm")),
	}}
	s := NewStore(lister)

	mem, err := s.Get(context.Background(), testSession())
	require.NoError(t, err)

	assert.Equal(t, []string{"calm"}, mem.Emotions)
	assert.Len(t, mem.Window, 3, "the turn itself survives even when metadata does not")
}

func TestGetPropagatesReadFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("db gone")}
	s := NewStore(lister)

	_, err := s.Get(context.Background(), testSession())
	require.Error(t, err)
	assert.Equal(t, 0, s.CachedCount(), "failed rebuilds must not be cached")
}

func TestInvalidate(t *testing.T) {
	lister := &fakeLister{messages: []*store.Message{}}
	s := NewStore(lister)
	session := testSession()

	_, err := s.Get(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, 1, s.CachedCount())

	s.Invalidate(session.UID)
	assert.Equal(t, 0, s.CachedCount())

	_, err = s.Get(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}
