package models

// Session identifies the active conversation. It is created on first
// successful identity establishment, persisted to the local store, and read
// once at startup.
type Session struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	ThreadID string `json:"threadId"`
}
