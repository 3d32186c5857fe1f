// Package chat orchestrates the per-turn pipeline: hydrate session memory,
// extract an assessment, synthesize a reply, detect conversation close,
// update progress, and persist the turn.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/assessment"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/closing"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/memory"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/progress"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/respond"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/timeout"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/ai"
	terrors "github.com/Adeyemijoshua/ai-therepist-agent-backend/server/internal/errors"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/server/internal/observability"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

// progressPerTurn is how much the session progress scalar rises per completed
// turn, matching the memory rebuild rate.
const progressPerTurn = 2

// previewLength bounds the last-message preview in session listings.
const previewLength = 80

// Service exposes the session operations consumed by the HTTP layer.
type Service struct {
	store       *store.Store
	memories    *memory.Store
	analyzer    assessment.Analyzer
	synthesizer respond.Synthesizer
	closer      *closing.Classifier
	progress    *progress.Aggregator

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService wires the pipeline on top of the given store and completion
// service.
func NewService(s *store.Store, llm ai.CompletionService) *Service {
	return &Service{
		store:       s,
		memories:    memory.NewStore(s),
		analyzer:    assessment.NewService(llm),
		synthesizer: respond.NewService(llm),
		closer:      closing.NewClassifier(),
		progress:    progress.NewAggregator(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the random source used for canned-response selection.
// Tests pin it to assert exact output.
func (s *Service) SetRand(rng *rand.Rand) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng = rng
}

func (s *Service) pickClosingLine() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return closing.PickLine(s.rng)
}

// MemorySummary is the caller-facing rendering of a session's working memory.
type MemorySummary struct {
	Name             string   `json:"name,omitempty"`
	RecentEmotions   []string `json:"recent_emotions"`
	RecentTopics     []string `json:"recent_topics"`
	RecentTechniques []string `json:"recent_techniques"`
	Trust            int      `json:"trust"`
	Progress         int      `json:"progress"`
}

// TurnResult is the outcome of one full pipeline pass.
type TurnResult struct {
	Reply                string                 `json:"reply"`
	Assessment           *assessment.Assessment `json:"assessment"`
	MemorySummary        MemorySummary          `json:"memory_summary"`
	ConversationComplete bool                   `json:"conversation_complete"`
	SessionStatus        store.SessionStatus    `json:"session_status"`
}

// History is the full readable state of one session.
type History struct {
	Messages        []*store.Message  `json:"messages"`
	MemorySummary   MemorySummary     `json:"memory_summary"`
	ProgressSummary *progress.Summary `json:"progress_summary"`
}

// SessionSummary is one row of a session listing.
type SessionSummary struct {
	SessionUID         string              `json:"session_uid"`
	Status             store.SessionStatus `json:"status"`
	MessageCount       int                 `json:"message_count"`
	LastMessagePreview string              `json:"last_message_preview"`
	MemorySummary      MemorySummary       `json:"memory_summary"`
	Degenerate         bool                `json:"degenerate,omitempty"`
	CreatedTs          int64               `json:"created_ts"`
	UpdatedTs          int64               `json:"updated_ts"`
}

// CreateSession creates an empty active session owned by ownerID.
func (s *Service) CreateSession(ctx context.Context, ownerID int32) (*store.Session, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	now := time.Now().Unix()
	session, err := s.store.CreateSession(ctx, &store.Session{
		UID:       shortuuid.New(),
		OwnerID:   ownerID,
		Status:    store.SessionStatusActive,
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return nil, terrors.StoreFailure("failed to create session", err)
	}
	return session, nil
}

// SendTurn runs the full pipeline for one inbound message. Extractor and
// synthesizer failures are absorbed into defaults; persistence failures
// surface as hard errors because an unsaved conversation has no safe default.
func (s *Service) SendTurn(ctx context.Context, sessionUID string, ownerID int32, utterance string) (*TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, terrors.InvalidArgument("utterance must not be empty")
	}

	// One overall deadline for the whole pipeline pass.
	ctx, cancel := context.WithTimeout(ctx, timeout.TurnTimeout)
	defer cancel()

	session, err := s.authorizedSession(ctx, sessionUID, ownerID)
	if err != nil {
		return nil, err
	}
	if session.Status != store.SessionStatusActive {
		return nil, terrors.InvalidArgument("session is not active")
	}

	logger := observability.NewRequestContext(slog.Default(), sessionUID, ownerID)
	logger.Info("turn started", slog.Int(observability.LogFieldMessageLen, len(utterance)))

	hydrateCtx, hydrateCancel := storeCtx(ctx)
	mem, err := s.memories.Get(hydrateCtx, session)
	hydrateCancel()
	if err != nil {
		return nil, terrors.StoreFailure("failed to hydrate session memory", err)
	}

	// One turn is a read-modify-write over the shared memory instance.
	// Concurrent turns on the same session serialize here; see the memory
	// package for the last-write-wins caveat.
	mem.Lock()
	defer mem.Unlock()

	if name := memory.ExtractName(utterance); name != "" && mem.Preferences.Name == "" {
		mem.Preferences.Name = name
	}

	turnAssessment := s.analyzer.Analyze(ctx, utterance, mem)

	complete := s.closer.ShouldClose(utterance)
	var reply string
	if complete {
		// Natural close: skip the synthesizer in favor of a canned line.
		reply = s.pickClosingLine()
	} else {
		reply = s.synthesizer.Respond(ctx, utterance, turnAssessment, mem)
	}

	mem.PushTurn("user", utterance)
	mem.PushTurn("assistant", reply)
	mem.RaiseProgress(progressPerTurn)

	if err := s.persistTurn(ctx, session, utterance, reply, turnAssessment); err != nil {
		// The turn was never saved: drop the derived state folded in above so
		// the next hydrate rebuilds from persisted truth.
		s.memories.Invalidate(sessionUID)
		return nil, err
	}

	s.progress.RecordTurn(sessionUID, turnAssessment)

	status := session.Status
	if complete {
		status = store.SessionStatusCompleted
	}
	now := time.Now().Unix()
	updateCtx, updateCancel := storeCtx(ctx)
	_, err = s.store.UpdateSession(updateCtx, &store.UpdateSession{
		ID:        session.ID,
		Status:    &status,
		UpdatedTs: &now,
	})
	updateCancel()
	if err != nil {
		return nil, terrors.StoreFailure("failed to update session", err)
	}

	logger.Done("turn completed",
		slog.Bool("conversation_complete", complete),
		slog.String("emotion", turnAssessment.Emotion))

	return &TurnResult{
		Reply:                reply,
		Assessment:           turnAssessment,
		MemorySummary:        summarizeMemory(mem),
		ConversationComplete: complete,
		SessionStatus:        status,
	}, nil
}

// GetHistory returns the session's messages in original append order plus the
// derived memory and progress summaries.
func (s *Service) GetHistory(ctx context.Context, sessionUID string, ownerID int32) (*History, error) {
	session, err := s.authorizedSession(ctx, sessionUID, ownerID)
	if err != nil {
		return nil, err
	}

	listCtx, listCancel := storeCtx(ctx)
	messages, err := s.store.ListMessages(listCtx, &store.FindMessage{SessionID: &session.ID})
	listCancel()
	if err != nil {
		return nil, terrors.StoreFailure("failed to list messages", err)
	}

	hydrateCtx, hydrateCancel := storeCtx(ctx)
	mem, err := s.memories.Get(hydrateCtx, session)
	hydrateCancel()
	if err != nil {
		return nil, terrors.StoreFailure("failed to hydrate session memory", err)
	}
	mem.Lock()
	summary := summarizeMemory(mem)
	mem.Unlock()

	return &History{
		Messages:        messages,
		MemorySummary:   summary,
		ProgressSummary: s.progress.Summarize(sessionUID),
	}, nil
}

// ListSessions returns summaries of all sessions owned by ownerID, newest
// activity first.
func (s *Service) ListSessions(ctx context.Context, ownerID int32) ([]*SessionSummary, error) {
	listCtx, listCancel := storeCtx(ctx)
	sessions, err := s.store.ListSessions(listCtx, &store.FindSession{OwnerID: &ownerID})
	listCancel()
	if err != nil {
		return nil, terrors.StoreFailure("failed to list sessions", err)
	}

	summaries := make([]*SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		msgCtx, msgCancel := storeCtx(ctx)
		messages, err := s.store.ListMessages(msgCtx, &store.FindMessage{SessionID: &session.ID})
		msgCancel()
		if err != nil {
			return nil, terrors.StoreFailure("failed to list messages", err)
		}

		preview := ""
		degenerate := len(messages) > 0
		for _, msg := range messages {
			if strings.TrimSpace(msg.Content) != "" {
				degenerate = false
			}
		}
		if len(messages) > 0 {
			preview = truncate(messages[len(messages)-1].Content, previewLength)
		}

		hydrateCtx, hydrateCancel := storeCtx(ctx)
		mem, err := s.memories.Get(hydrateCtx, session)
		hydrateCancel()
		if err != nil {
			return nil, terrors.StoreFailure("failed to hydrate session memory", err)
		}
		mem.Lock()
		memSummary := summarizeMemory(mem)
		mem.Unlock()

		summaries = append(summaries, &SessionSummary{
			SessionUID:         session.UID,
			Status:             session.Status,
			MessageCount:       len(messages),
			LastMessagePreview: preview,
			MemorySummary:      memSummary,
			Degenerate:         degenerate,
			CreatedTs:          session.CreatedTs,
			UpdatedTs:          session.UpdatedTs,
		})
	}

	return summaries, nil
}

// storeCtx bounds one persistence access with the store deadline.
func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout.StoreTimeout)
}

// authorizedSession loads the session and enforces the ownership check.
func (s *Service) authorizedSession(ctx context.Context, sessionUID string, ownerID int32) (*store.Session, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	session, err := s.store.GetSession(ctx, &store.FindSession{UID: &sessionUID})
	if err != nil {
		return nil, terrors.StoreFailure("failed to load session", err)
	}
	if session == nil {
		return nil, terrors.NotFound("session not found")
	}
	if session.OwnerID != ownerID {
		return nil, terrors.Unauthorized("caller does not own this session")
	}
	return session, nil
}

// persistTurn appends the user+assistant pair atomically, with the
// assessment attached to the assistant message's metadata.
func (s *Service) persistTurn(ctx context.Context, session *store.Session, utterance, reply string, a *assessment.Assessment) error {
	metadata, err := json.Marshal(a.Metadata())
	if err != nil {
		// Marshalling a plain struct only fails on programmer error; fall
		// back to empty metadata rather than losing the turn.
		slog.Error("failed to marshal turn metadata", "error", err)
		metadata = []byte("{}")
	}

	now := time.Now().Unix()
	userMsg := &store.Message{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Role:      store.MessageRoleUser,
		Content:   utterance,
		CreatedTs: now,
	}
	assistantMsg := &store.Message{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Role:      store.MessageRoleAssistant,
		Content:   reply,
		Metadata:  string(metadata),
		CreatedTs: now,
	}

	ctx, cancel := storeCtx(ctx)
	defer cancel()
	if err := s.store.CreateMessagePair(ctx, userMsg, assistantMsg); err != nil {
		return terrors.StoreFailure("failed to persist turn", err)
	}
	return nil
}

// summarizeMemory renders the caller-facing memory view.
// Callers must hold the memory lock.
func summarizeMemory(mem *memory.SessionMemory) MemorySummary {
	return MemorySummary{
		Name:             mem.Preferences.Name,
		RecentEmotions:   memory.RecentDistinct(mem.Emotions, 5),
		RecentTopics:     memory.RecentDistinct(mem.Topics, 5),
		RecentTechniques: memory.RecentDistinct(mem.Techniques, 5),
		Trust:            mem.Context.Trust,
		Progress:         mem.Context.Progress,
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
