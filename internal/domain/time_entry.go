package domain

import (
	"fmt"
	"time"
)

// TaskTimeEntry tracks a span of work on a task by one user. An entry is
// open until Complete sets its end time. The model permits multiple
// concurrently open entries per task.
type TaskTimeEntry struct {
	ID        string
	TaskID    string
	UserID    string
	StartedAt time.Time
	EndedAt   *time.Time
	Notes     string
}

// IsOpen returns true while the entry has no end time.
func (e *TaskTimeEntry) IsOpen() bool {
	return e.EndedAt == nil
}

// Complete closes the entry. The end time must not precede the start time.
// Notes, if non-empty, replace any notes recorded at start.
func (e *TaskTimeEntry) Complete(endedAt time.Time, notes string) error {
	if endedAt.Before(e.StartedAt) {
		return fmt.Errorf("%w: end time %s precedes start time %s",
			ErrInvalidArgument, endedAt.Format(time.RFC3339), e.StartedAt.Format(time.RFC3339))
	}
	e.EndedAt = &endedAt
	if notes != "" {
		e.Notes = notes
	}
	return nil
}

// Duration returns the tracked span when the entry is closed. The second
// return is false while the entry is still open.
func (e *TaskTimeEntry) Duration() (time.Duration, bool) {
	if e.EndedAt == nil {
		return 0, false
	}
	return e.EndedAt.Sub(e.StartedAt), true
}
