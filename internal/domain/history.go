package domain

import "time"

// TaskStateHistory is a single entry in a task's append-only audit ledger.
// Every status transition records who moved the task, from where, to where,
// and optionally why. The first entry of every task is the creation marker
// (PENDING -> PENDING).
type TaskStateHistory struct {
	ID         string
	TaskID     string
	FromStatus TaskStatus
	ToStatus   TaskStatus
	ActorID    string
	Reason     string
	CreatedAt  time.Time
}

// IsCreationMarker returns true if the entry records task creation rather
// than a real transition.
func (h *TaskStateHistory) IsCreationMarker() bool {
	return h.FromStatus == TaskStatusPending && h.ToStatus == TaskStatusPending
}
