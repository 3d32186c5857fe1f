package chat

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/internal/profile"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/closing"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/memory"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/respond"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/sanitize"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/ai"
	terrors "github.com/Adeyemijoshua/ai-therepist-agent-backend/server/internal/errors"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

// fakeDriver is an in-memory store.Driver sufficient for pipeline tests.
type fakeDriver struct {
	mu       sync.Mutex
	nextID   int32
	sessions []*store.Session
	messages []*store.Message
	users    []*store.User

	pairCtxHasDeadline bool
}

func newFakeDriver() *fakeDriver { return &fakeDriver{} }

func (d *fakeDriver) GetDB() *sql.DB                    { return nil }
func (d *fakeDriver) Close() error                      { return nil }
func (d *fakeDriver) Migrate(ctx context.Context) error { return nil }

func (d *fakeDriver) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	create.ID = d.nextID
	copied := *create
	d.sessions = append(d.sessions, &copied)
	return create, nil
}

func (d *fakeDriver) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Session
	for _, s := range d.sessions {
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.UID != nil && s.UID != *find.UID {
			continue
		}
		if find.OwnerID != nil && s.OwnerID != *find.OwnerID {
			continue
		}
		if find.Status != nil && s.Status != *find.Status {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (d *fakeDriver) UpdateSession(ctx context.Context, update *store.UpdateSession) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sessions {
		if s.ID != update.ID {
			continue
		}
		if update.Status != nil {
			s.Status = *update.Status
		}
		if update.UpdatedTs != nil {
			s.UpdatedTs = *update.UpdatedTs
		}
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (d *fakeDriver) DeleteSession(ctx context.Context, del *store.DeleteSession) error { return nil }

func (d *fakeDriver) CreateMessagePair(ctx context.Context, user, assistant *store.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, d.pairCtxHasDeadline = ctx.Deadline()
	for _, msg := range []*store.Message{user, assistant} {
		d.nextID++
		msg.ID = d.nextID
		copied := *msg
		d.messages = append(d.messages, &copied)
	}
	return nil
}

func (d *fakeDriver) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	create.ID = d.nextID
	copied := *create
	d.messages = append(d.messages, &copied)
	return create, nil
}

func (d *fakeDriver) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Message
	for _, m := range d.messages {
		if find.ID != nil && m.ID != *find.ID {
			continue
		}
		if find.SessionID != nil && m.SessionID != *find.SessionID {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (d *fakeDriver) DeleteMessages(ctx context.Context, del *store.DeleteMessage) error { return nil }

func (d *fakeDriver) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	create.ID = d.nextID
	copied := *create
	d.users = append(d.users, &copied)
	return create, nil
}

func (d *fakeDriver) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.User
	for _, u := range d.users {
		if find.ID != nil && u.ID != *find.ID {
			continue
		}
		if find.Username != nil && u.Username != *find.Username {
			continue
		}
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

func (d *fakeDriver) DeleteUser(ctx context.Context, del *store.DeleteUser) error { return nil }

var _ store.Driver = (*fakeDriver)(nil)

const anxiousExtraction = `{
	"emotion": "anxious",
	"intensity": 8,
	"themes": ["exams", "sleep"],
	"distortions": ["catastrophizing"],
	"techniques": ["grounding"],
	"focus": "anxiety_management",
	"risk_score": 1
}`

// scriptedLLM routes low-temperature calls to the extraction payload and
// high-temperature calls to the reply text, mirroring the two pipeline steps.
func scriptedLLM(reply string) *ai.MockCompletionService {
	return &ai.MockCompletionService{
		CompleteFunc: func(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
			if opts.Temperature < 0.5 {
				return anxiousExtraction, nil
			}
			return reply, nil
		},
	}
}

func synthesisCalls(llm *ai.MockCompletionService) int {
	n := 0
	for _, call := range llm.Calls {
		if call.Opts.Temperature >= 0.5 {
			n++
		}
	}
	return n
}

func newTestService(llm ai.CompletionService) (*Service, *fakeDriver) {
	driver := newFakeDriver()
	svc := NewService(store.New(driver, &profile.Profile{}), llm)
	svc.SetRand(rand.New(rand.NewSource(1)))
	return svc, driver
}

func TestSendTurnPipeline(t *testing.T) {
	ctx := context.Background()
	llm := scriptedLLM("That sounds really overwhelming. What feels most out of control right now?")
	svc, _ := newTestService(llm)

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, store.SessionStatusActive, session.Status)

	result, err := svc.SendTurn(ctx, session.UID, 1, "I've been so anxious about my exam I can't sleep")
	require.NoError(t, err)

	assert.Equal(t, "That sounds really overwhelming. What feels most out of control right now?", result.Reply)
	assert.False(t, result.ConversationComplete)
	assert.Equal(t, store.SessionStatusActive, result.SessionStatus)

	require.NotNil(t, result.Assessment)
	assert.Equal(t, "anxious", result.Assessment.Emotion)
	assert.Equal(t, 8, result.Assessment.Intensity)

	assert.Equal(t, []string{"anxious"}, result.MemorySummary.RecentEmotions)
	assert.Equal(t, []string{"exams", "sleep"}, result.MemorySummary.RecentTopics)
	assert.Equal(t, memory.DefaultTrust+1, result.MemorySummary.Trust)
	assert.Equal(t, 2, result.MemorySummary.Progress)

	// One extraction call plus one synthesis call.
	assert.Equal(t, 2, llm.CallCount())
	assert.Equal(t, 1, synthesisCalls(llm))
}

func TestSendTurnPersistsPair(t *testing.T) {
	ctx := context.Background()
	llm := scriptedLLM("I'm listening.")
	svc, driver := newTestService(llm)

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	_, err = svc.SendTurn(ctx, session.UID, 1, "first message")
	require.NoError(t, err)
	_, err = svc.SendTurn(ctx, session.UID, 1, "second message")
	require.NoError(t, err)

	messages, err := driver.ListMessages(ctx, &store.FindMessage{SessionID: &session.ID})
	require.NoError(t, err)
	require.Len(t, messages, 4)

	assert.Equal(t, store.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "first message", messages[0].Content)
	assert.Equal(t, store.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, store.MessageRoleUser, messages[2].Role)
	assert.Equal(t, "second message", messages[2].Content)

	// The assistant message carries the decodable assessment metadata.
	meta, ok := memory.DecodeTurnMetadata(messages[1].Metadata)
	require.True(t, ok)
	assert.Equal(t, "anxious", meta.Assessment.Emotion)
	assert.Equal(t, "grounding", meta.Technique)
	assert.Empty(t, messages[0].Metadata, "user messages carry no metadata")

	assert.True(t, driver.pairCtxHasDeadline, "persistence writes carry a deadline")
}

// failingPairDriver rejects every paired-message write.
type failingPairDriver struct {
	*fakeDriver
}

func (d *failingPairDriver) CreateMessagePair(ctx context.Context, user, assistant *store.Message) error {
	return errDiskFull
}

var errDiskFull = errors.New("disk full")

func TestSendTurnPersistFailureResetsMemory(t *testing.T) {
	ctx := context.Background()
	driver := &failingPairDriver{newFakeDriver()}
	svc := NewService(store.New(driver, &profile.Profile{}), scriptedLLM("I'm listening."))
	svc.SetRand(rand.New(rand.NewSource(1)))

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	_, err = svc.SendTurn(ctx, session.UID, 1, "I've been so anxious about my exam I can't sleep")
	require.Error(t, err)
	assert.True(t, terrors.IsCode(err, terrors.ErrCodeStoreFailure))

	// Nothing was saved, so nothing derived from the failed turn may survive.
	history, err := svc.GetHistory(ctx, session.UID, 1)
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
	assert.Empty(t, history.MemorySummary.RecentEmotions)
	assert.Empty(t, history.MemorySummary.RecentTopics)
	assert.Equal(t, 0, history.MemorySummary.Progress)
	assert.Nil(t, history.ProgressSummary, "unsaved turns do not count toward progress")
}

func TestSendTurnConversationClose(t *testing.T) {
	ctx := context.Background()
	llm := scriptedLLM("a generated reply that should not be used for the close")
	svc, _ := newTestService(llm)

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	_, err = svc.SendTurn(ctx, session.UID, 1, "I've been anxious all week")
	require.NoError(t, err)
	require.Equal(t, 1, synthesisCalls(llm))

	result, err := svc.SendTurn(ctx, session.UID, 1, "thanks, I feel better now")
	require.NoError(t, err)

	assert.True(t, result.ConversationComplete)
	assert.Equal(t, store.SessionStatusCompleted, result.SessionStatus)
	assert.Contains(t, closing.Lines(), result.Reply)

	// Extraction still ran for the close turn, synthesis did not.
	assert.Equal(t, 1, synthesisCalls(llm))
	assert.Equal(t, 3, llm.CallCount())

	// The close is terminal: further turns are rejected.
	_, err = svc.SendTurn(ctx, session.UID, 1, "actually one more thing")
	require.Error(t, err)
	assert.True(t, terrors.IsCode(err, terrors.ErrCodeInvalidArgument))
}

func TestSendTurnClosingLineIsPinnedByRand(t *testing.T) {
	ctx := context.Background()

	run := func() string {
		svc, _ := newTestService(scriptedLLM("reply"))
		svc.SetRand(rand.New(rand.NewSource(42)))
		session, err := svc.CreateSession(ctx, 1)
		require.NoError(t, err)
		result, err := svc.SendTurn(ctx, session.UID, 1, "goodbye")
		require.NoError(t, err)
		return result.Reply
	}

	assert.Equal(t, run(), run())
}

func TestSendTurnValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(scriptedLLM("reply"))

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	t.Run("EmptyUtterance", func(t *testing.T) {
		_, err := svc.SendTurn(ctx, session.UID, 1, "   ")
		require.Error(t, err)
		assert.True(t, terrors.IsCode(err, terrors.ErrCodeInvalidArgument))
	})

	t.Run("UnknownSession", func(t *testing.T) {
		_, err := svc.SendTurn(ctx, "no-such-session", 1, "hello")
		require.Error(t, err)
		assert.True(t, terrors.IsCode(err, terrors.ErrCodeNotFound))
	})

	t.Run("WrongOwner", func(t *testing.T) {
		_, err := svc.SendTurn(ctx, session.UID, 99, "hello")
		require.Error(t, err)
		assert.True(t, terrors.IsCode(err, terrors.ErrCodeUnauthorized))
	})
}

func TestSendTurnSafetySubstitution(t *testing.T) {
	ctx := context.Background()
	llm := scriptedLLM("For that, I prescribe you a strong sedative.")
	svc, _ := newTestService(llm)

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	result, err := svc.SendTurn(ctx, session.UID, 1, "I can't sleep at night")
	require.NoError(t, err)
	assert.Equal(t, sanitize.SafeFallback, result.Reply)
}

func TestSendTurnCrisisDisclosure(t *testing.T) {
	ctx := context.Background()
	llm := scriptedLLM("a reply that must never surface")
	svc, _ := newTestService(llm)

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	result, err := svc.SendTurn(ctx, session.UID, 1, "lately I don't want to be here anymore")
	require.NoError(t, err)

	assert.Equal(t, respond.CrisisSupportLine, result.Reply)
	assert.False(t, result.ConversationComplete)
	assert.Equal(t, 0, synthesisCalls(llm), "crisis replies bypass generation")
}

func TestSendTurnRemembersName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(scriptedLLM("Nice to meet you."))

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	result, err := svc.SendTurn(ctx, session.UID, 1, "hi, my name is Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", result.MemorySummary.Name)

	// The name sticks for later turns.
	result, err = svc.SendTurn(ctx, session.UID, 1, "work has been hard")
	require.NoError(t, err)
	assert.Equal(t, "Ada", result.MemorySummary.Name)
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(scriptedLLM("I'm listening."))

	session, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)

	_, err = svc.SendTurn(ctx, session.UID, 1, "first")
	require.NoError(t, err)
	_, err = svc.SendTurn(ctx, session.UID, 1, "second")
	require.NoError(t, err)

	history, err := svc.GetHistory(ctx, session.UID, 1)
	require.NoError(t, err)

	require.Len(t, history.Messages, 4)
	assert.Equal(t, "first", history.Messages[0].Content)
	assert.Equal(t, "second", history.Messages[2].Content)

	require.NotNil(t, history.ProgressSummary)
	assert.Equal(t, 2, history.ProgressSummary.TurnCount)

	t.Run("WrongOwner", func(t *testing.T) {
		_, err := svc.GetHistory(ctx, session.UID, 99)
		require.Error(t, err)
		assert.True(t, terrors.IsCode(err, terrors.ErrCodeUnauthorized))
	})
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(scriptedLLM("Short reply."))

	mine, err := svc.CreateSession(ctx, 1)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, 2)
	require.NoError(t, err)

	_, err = svc.SendTurn(ctx, mine.UID, 1, "hello there")
	require.NoError(t, err)

	summaries, err := svc.ListSessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1, "only the caller's sessions are listed")

	s := summaries[0]
	assert.Equal(t, mine.UID, s.SessionUID)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, "Short reply.", s.LastMessagePreview)
	assert.False(t, s.Degenerate)
}

func TestListSessionsEmptyForNewUser(t *testing.T) {
	svc, _ := newTestService(scriptedLLM("reply"))
	summaries, err := svc.ListSessions(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
