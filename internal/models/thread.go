package models

// Thread is the backend's persistent conversation record: an ordered message
// history owned by a single user.
type Thread struct {
	ID       string
	UserID   string
	Messages []ChatMessage
}
