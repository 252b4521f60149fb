package core

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the human user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the agent.
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known conversation roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// Message is a single immutable entry in a conversation. Messages are
// ordered by insertion within their (user, session) key and are never
// mutated after being written.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation carries the metadata of a (user, session) message log.
// The message sequence itself is owned by the ConversationStore.
type Conversation struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// TurnResult is the transient outcome of one agent turn. It is not
// persisted as its own entity; Answer becomes the assistant Message.
type TurnResult struct {
	Answer     string `json:"answer"`
	Success    bool   `json:"success"`
	Iterations int    `json:"iterations"`
	Err        error  `json:"-"`
}

// Stats summarizes a session's persisted conversation state.
type Stats struct {
	SessionID       string `json:"session_id"`
	TurnCount       int    `json:"turn_count"`
	MemorySizeBytes int    `json:"memory_size_bytes"`
}

// StatsFromMessages derives Stats from a loaded message sequence. A turn is
// one user input plus the resulting answer, so the turn count is the number
// of persisted user messages.
func StatsFromMessages(sessionID string, msgs []Message) Stats {
	s := Stats{SessionID: sessionID}
	for _, m := range msgs {
		if m.Role == RoleUser {
			s.TurnCount++
		}
	}
	s.MemorySizeBytes = len(FormatHistory(msgs))
	return s
}

// FormatHistory renders messages as a plain transcript suitable for model
// context. Chronological order is preserved.
func FormatHistory(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch m.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			fmt.Fprintf(&b, "%s: ", m.Role)
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
