package memory

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adeyemijoshua/ai-therepist-agent-backend/plugin/ai/cache"
	"github.com/Adeyemijoshua/ai-therepist-agent-backend/store"
)

const (
	cachePrefix = "memory:"
	cacheTTL    = 30 * time.Minute
	cacheSize   = 2000
)

// MessageLister is the persistence collaborator needed for cold rebuilds.
type MessageLister interface {
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
}

// Store owns the process-local SessionMemory cache with get-or-rebuild
// semantics. A cache hit returns the cached instance unchanged; a miss
// replays the session's persisted messages. Entries may be evicted at any
// time since they are fully reconstructable.
type Store struct {
	cache   *cache.LRUCache
	persist MessageLister
	group   singleflight.Group
}

// NewStore creates a memory store backed by the given persistence collaborator.
func NewStore(persist MessageLister) *Store {
	return &Store{
		cache:   cache.NewLRUCache(cacheSize, cacheTTL),
		persist: persist,
	}
}

// Get returns the session's working memory, rebuilding it from persisted
// messages on a cache miss. Concurrent misses for one session are coalesced
// so the rebuild runs once.
func (s *Store) Get(ctx context.Context, session *store.Session) (*SessionMemory, error) {
	key := cachePrefix + session.UID
	if v, ok := s.cache.Get(key); ok {
		return v.(*SessionMemory), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Another caller may have rebuilt while we waited on the group.
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		mem, err := s.rebuild(ctx, session)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, mem, cacheTTL)
		return mem, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SessionMemory), nil
}

// Invalidate drops the cached memory for a session. The next Get rebuilds it.
func (s *Store) Invalidate(sessionUID string) {
	s.cache.Invalidate(cachePrefix + sessionUID)
}

// CachedCount returns the number of sessions currently held in the cache.
func (s *Store) CachedCount() int {
	return s.cache.Size()
}

// rebuild replays the session's persisted messages in order. Malformed
// metadata on individual messages is skipped; a persistence read failure
// propagates because the pipeline cannot proceed without it.
func (s *Store) rebuild(ctx context.Context, session *store.Session) (*SessionMemory, error) {
	messages, err := s.persist.ListMessages(ctx, &store.FindMessage{SessionID: &session.ID})
	if err != nil {
		return nil, err
	}

	mem := NewSessionMemory(session.UID)
	pairs := 0
	for _, msg := range messages {
		switch msg.Role {
		case store.MessageRoleUser:
			mem.PushTurn("user", msg.Content)
			if mem.Preferences.Name == "" {
				if name := ExtractName(msg.Content); name != "" {
					mem.Preferences.Name = name
				}
			}
		case store.MessageRoleAssistant:
			pairs++
			mem.PushTurn("assistant", msg.Content)
			meta, ok := DecodeTurnMetadata(msg.Metadata)
			if !ok {
				continue
			}
			a := meta.Assessment
			if a.Emotion != "" {
				mem.Emotions = appendBounded(mem.Emotions, maxEmotions, a.Emotion)
			}
			themes := a.Themes
			if len(themes) > 2 {
				themes = themes[:2]
			}
			mem.Topics = appendBounded(mem.Topics, maxTopics, themes...)
			mem.Patterns = appendBounded(mem.Patterns, maxPatterns, a.Distortions...)
			if len(a.Techniques) > 0 {
				mem.Techniques = appendBounded(mem.Techniques, maxTechniques, a.Techniques[0])
			}
		default:
			slog.Warn("skipping message with unknown role",
				"session_uid", session.UID, "role", msg.Role)
		}
	}

	// Context starts neutral; progress rises with conversation length.
	mem.Context.Progress = clampScalar(pairs * progressPerPair)
	return mem, nil
}
