// Package memory owns the per-session derived state that gives later turns
// continuity. Everything here is rebuilt from persisted messages; losing the
// cache loses no data.
package memory

import (
	"regexp"
	"strings"
	"sync"
)

// Bounds for the tracked lists. Truncation drops the oldest entries, never
// the newest.
const (
	maxEmotions   = 20
	maxTopics     = 25
	maxTechniques = 15
	maxPatterns   = 15
	maxWindow     = 16 // 8 user/assistant pairs
)

// Default context values for a fresh or freshly rebuilt memory.
const (
	DefaultEmotion  = "neutral"
	DefaultTrust    = 50
	DefaultProgress = 0

	// progressPerPair is how much the progress scalar rises per message pair
	// during reconstruction.
	progressPerPair = 2
)

// Preferences is the user-preferences snapshot disclosed during conversation.
type Preferences struct {
	Name               string `json:"name,omitempty"`
	CommunicationStyle string `json:"communication_style,omitempty"`
}

// Turn is one role-labeled utterance in the recent conversation window.
type Turn struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// ContextState tracks the rolling conversational context.
type ContextState struct {
	LastEmotion   string `json:"last_emotion"`
	LastTechnique string `json:"last_technique,omitempty"`
	// Progress and Trust are 0-100 scalars.
	Progress int `json:"progress"`
	Trust    int `json:"trust"`
}

// SessionMemory is the derived working memory of one session. All turns for
// one session within a process share the same instance, so later reads
// observe earlier writes. Callers performing a read-modify-write sequence
// across pipeline steps must hold Lock for its duration; concurrent turns on
// one session otherwise degrade to last-write-wins.
type SessionMemory struct {
	mu sync.Mutex

	SessionUID  string       `json:"session_uid"`
	Emotions    []string     `json:"emotions"`
	Topics      []string     `json:"topics"`
	Techniques  []string     `json:"techniques"`
	Patterns    []string     `json:"patterns"`
	Window      []Turn       `json:"window"`
	Preferences Preferences  `json:"preferences"`
	Context     ContextState `json:"context"`
}

// NewSessionMemory creates an empty memory shell with neutral context.
func NewSessionMemory(sessionUID string) *SessionMemory {
	return &SessionMemory{
		SessionUID: sessionUID,
		Emotions:   []string{},
		Topics:     []string{},
		Techniques: []string{},
		Patterns:   []string{},
		Window:     []Turn{},
		Context: ContextState{
			LastEmotion: DefaultEmotion,
			Trust:       DefaultTrust,
			Progress:    DefaultProgress,
		},
	}
}

// Lock acquires the per-session mutex guarding read-modify-write sequences.
func (m *SessionMemory) Lock() { m.mu.Lock() }

// Unlock releases the per-session mutex.
func (m *SessionMemory) Unlock() { m.mu.Unlock() }

// PushEmotion appends an emotion label and truncates to the window bound.
func (m *SessionMemory) PushEmotion(emotion string) {
	if emotion == "" {
		return
	}
	m.Emotions = appendBounded(m.Emotions, maxEmotions, emotion)
	m.Context.LastEmotion = emotion
}

// PushTopics appends theme strings and truncates to the window bound.
func (m *SessionMemory) PushTopics(topics ...string) {
	m.Topics = appendBounded(m.Topics, maxTopics, topics...)
}

// PushTechnique appends a technique identifier and truncates to the window bound.
func (m *SessionMemory) PushTechnique(technique string) {
	if technique == "" {
		return
	}
	m.Techniques = appendBounded(m.Techniques, maxTechniques, technique)
	m.Context.LastTechnique = technique
}

// PushPatterns appends cognitive-pattern identifiers and truncates to the window bound.
func (m *SessionMemory) PushPatterns(patterns ...string) {
	m.Patterns = appendBounded(m.Patterns, maxPatterns, patterns...)
}

// PushTurn appends a turn to the conversation window, dropping the oldest
// entries past the window bound.
func (m *SessionMemory) PushTurn(role, content string) {
	m.Window = append(m.Window, Turn{Role: role, Content: content})
	if len(m.Window) > maxWindow {
		m.Window = append([]Turn{}, m.Window[len(m.Window)-maxWindow:]...)
	}
}

// RecentWindow returns up to limit of the newest window turns in order.
func (m *SessionMemory) RecentWindow(limit int) []Turn {
	w := m.Window
	if limit > 0 && len(w) > limit {
		w = w[len(w)-limit:]
	}
	out := make([]Turn, len(w))
	copy(out, w)
	return out
}

// RaiseTrust bumps the trust scalar, capped at 100.
func (m *SessionMemory) RaiseTrust(delta int) {
	m.Context.Trust = clampScalar(m.Context.Trust + delta)
}

// RaiseProgress bumps the progress scalar, capped at 100.
func (m *SessionMemory) RaiseProgress(delta int) {
	m.Context.Progress = clampScalar(m.Context.Progress + delta)
}

// RecentDistinct returns up to limit distinct entries from the newest end of
// list, preserving recency order (newest last).
func RecentDistinct(list []string, limit int) []string {
	seen := make(map[string]bool, len(list))
	out := []string{}
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		v := list[i]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append([]string{v}, out...)
	}
	return out
}

func appendBounded(list []string, max int, values ...string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		list = append(list, v)
	}
	if len(list) > max {
		list = append([]string{}, list[len(list)-max:]...)
	}
	return list
}

func clampScalar(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Self-introduction patterns scanned over user turns. The bare "I'm X" form
// requires a capitalized token so feeling statements ("i'm anxious") don't
// register as names.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([A-Za-z]+)`),
	regexp.MustCompile(`(?i)\bcall me ([A-Za-z]+)`),
	regexp.MustCompile(`\bI'?m ([A-Z][a-z]+)\b`),
}

// ExtractName returns the first self-introduced display name in the
// utterance, or "" when none is found.
func ExtractName(utterance string) string {
	for _, re := range namePatterns {
		if match := re.FindStringSubmatch(utterance); match != nil {
			return match[1]
		}
	}
	return ""
}
