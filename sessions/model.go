package sessions

import (
	"errors"
	"time"
)

// MaxSessionDuration is how long a session may stay idle before the reaper
// removes it.
const MaxSessionDuration = 24 * time.Hour

// Role of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrNotFound = errors.New("session not found")

// Message is one entry of the ordered conversation log.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StudySession is one tutoring conversation. Version backs the optimistic
// concurrency check on message appends.
type StudySession struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	Messages     []Message      `json:"messages"`
	ProgressData map[string]any `json:"progress_data"`
	Version      int            `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
}

// ContextMessage is the trimmed shape handed to the LLM as conversation history.
type ContextMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ContextWindow returns the last maxMessages non-system messages in order.
// System prompts are injected separately at completion time.
func ContextWindow(messages []Message, maxMessages int) []ContextMessage {
	recent := messages
	if len(recent) > maxMessages {
		recent = recent[len(recent)-maxMessages:]
	}
	out := []ContextMessage{}
	for _, m := range recent {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, ContextMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Numeric progress values are float64 so they keep their type across JSON
// round-trips and in-process updates alike.
func newProgressData() map[string]any {
	return map[string]any{
		"concepts_covered":       []any{},
		"problems_solved":        float64(0),
		"quiz_scores":            []any{},
		"time_spent":             float64(0),
		"difficulty_progression": []any{},
	}
}
