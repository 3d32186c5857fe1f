package store

// SessionStatus is the lifecycle status of a conversation session.
type SessionStatus string

const (
	// SessionStatusActive is a session still accepting turns.
	SessionStatusActive SessionStatus = "ACTIVE"
	// SessionStatusCompleted is a session closed by the conversation-end path.
	// Terminal: no transition back to ACTIVE is defined here.
	SessionStatusCompleted SessionStatus = "COMPLETED"
	// SessionStatusArchived is a session archived by an external collaborator.
	SessionStatusArchived SessionStatus = "ARCHIVED"
)

// Session is one continuous conversation between one owner and the assistant.
type Session struct {
	ID        int32
	UID       string
	OwnerID   int32
	Status    SessionStatus
	CreatedTs int64
	UpdatedTs int64
}

type FindSession struct {
	ID      *int32
	UID     *string
	OwnerID *int32
	Status  *SessionStatus
}

type UpdateSession struct {
	ID        int32
	Status    *SessionStatus
	UpdatedTs *int64
}

type DeleteSession struct {
	ID int32
}

// MessageRole identifies who produced a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
)

// Message is one utterance in a session. The sequence is append-only and its
// order is the conversation order.
type Message struct {
	ID        int32
	UID       string
	SessionID int32
	Role      MessageRole
	Content   string
	Metadata  string // JSON string; assistant turns carry the assessment here
	CreatedTs int64
}

type FindMessage struct {
	ID        *int32
	SessionID *int32
}

type DeleteMessage struct {
	ID        *int32
	SessionID *int32
}
