package models

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user. User messages carry their
	// full content immediately and are never streamed.
	RoleUser Role = "user"
	// RoleAssistant represents a message generated by the backend assistant. An
	// assistant message starts as an empty placeholder and accumulates content
	// while its run streams.
	RoleAssistant Role = "assistant"
	// RoleSystem represents a system message.
	RoleSystem Role = "system"
)

// ChatMessage is a single entry in the conversation transcript. Transcript
// order is append order; messages carry no timestamp for display purposes.
type ChatMessage struct {
	ID      string
	Role    Role
	Content string

	// Sources holds reference identifiers attached to a finalized assistant
	// message. Empty for user and system messages.
	Sources []string
}
