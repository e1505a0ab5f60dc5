// Package model defines the core conversation and memory data types.
package model

import (
	"strings"
	"time"
)

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRoles are the allowed message roles.
var ValidRoles = map[Role]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
}

// Message is one conversational turn held in short-term memory.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LongTermText is the canonical representation persisted for a message,
// e.g. "USER: what does bene mean?".
func (m Message) LongTermText() string {
	return strings.ToUpper(string(m.Role)) + ": " + m.Content
}

// Chunk is a unit of long-term memory.
type Chunk struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Match is a chunk scored against a query embedding.
type Match struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
	SessionID  string    `json:"session_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// RetrievalStatus records how the relevant-chunk lookup of a bundle went.
// It is not serialised: callers see the same bundle shape either way.
type RetrievalStatus int

const (
	// RetrievalSkipped means the query was empty or no chunks were asked for,
	// so the store was not consulted.
	RetrievalSkipped RetrievalStatus = iota
	// RetrievalEmpty means the store answered with no matches.
	RetrievalEmpty
	// RetrievalOK means at least one chunk was returned.
	RetrievalOK
	// RetrievalFailed means embedding or the store failed; chunks are empty.
	RetrievalFailed
)

func (s RetrievalStatus) String() string {
	switch s {
	case RetrievalSkipped:
		return "skipped"
	case RetrievalEmpty:
		return "empty"
	case RetrievalOK:
		return "ok"
	case RetrievalFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ContextBundle is the per-turn payload handed to the completion provider.
type ContextBundle struct {
	SystemInstructions string    `json:"system_instructions"`
	ShortTermMemory    []Message `json:"short_term_memory"`
	RelevantChunks     []string  `json:"relevant_chunks"`
	UserQuery          string    `json:"user_query"`

	Retrieval RetrievalStatus `json:"-"`
}
