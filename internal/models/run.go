package models

// RunStatus represents the backend-reported lifecycle state of a run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is a backend-tracked unit of work representing one assistant response
// generation. The client only observes runs, via polling or the event feed,
// and never mutates them.
type Run struct {
	ID       string
	ThreadID string
	Status   RunStatus

	// Timestamps are kept in the backend's wire representation; the client
	// only displays them.
	CreatedAt  string
	StartedAt  string
	FinishedAt string

	Error string
}

// Terminal reports whether the run has reached a final state.
func (r Run) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}
