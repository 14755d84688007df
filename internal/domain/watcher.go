package domain

import "time"

// TaskWatcher subscribes a user to a task's activity. Watchers have set
// semantics per task: at most one entry per user.
type TaskWatcher struct {
	ID        string
	TaskID    string
	UserID    string
	CreatedAt time.Time
}
