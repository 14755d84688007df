package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DependencyType tags the ordering semantics of a dependency edge.
type DependencyType string

const (
	// DependencyFinishToStart requires the depended-on task to complete
	// before the owning task may start. This is the default.
	DependencyFinishToStart DependencyType = "FINISH_TO_START"
	// DependencyStartToStart requires the depended-on task to have started.
	DependencyStartToStart DependencyType = "START_TO_START"
	// DependencyFinishToFinish requires the depended-on task to complete
	// before the owning task may finish.
	DependencyFinishToFinish DependencyType = "FINISH_TO_FINISH"
)

// IsValid checks if the dependency type is one of the allowed values.
func (d DependencyType) IsValid() bool {
	switch d {
	case DependencyFinishToStart, DependencyStartToStart, DependencyFinishToFinish:
		return true
	default:
		return false
	}
}

// Normalize returns the type itself when valid, DependencyFinishToStart otherwise.
func (d DependencyType) Normalize() DependencyType {
	if d.IsValid() {
		return d
	}
	return DependencyFinishToStart
}

// TaskDependency is a directed edge from a task to a task it depends on.
// Immutable after creation. MinimumLag and Blocking are metadata for
// scheduler-side use; readiness evaluation does not enforce them.
type TaskDependency struct {
	ID              string
	TaskID          string
	DependsOnTaskID string
	Type            DependencyType
	Blocking        bool
	MinimumLag      time.Duration
	CreatedAt       time.Time
}

// NewTaskDependency creates a dependency edge. Self-dependencies are rejected.
func NewTaskDependency(taskID, dependsOnTaskID string, depType DependencyType, blocking bool, minimumLag time.Duration, createdAt time.Time) (*TaskDependency, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrInvalidArgument)
	}
	if dependsOnTaskID == "" {
		return nil, fmt.Errorf("%w: depends-on task id is required", ErrInvalidArgument)
	}
	if taskID == dependsOnTaskID {
		return nil, fmt.Errorf("%w: task %s", ErrSelfDependency, taskID)
	}
	if minimumLag < 0 {
		return nil, fmt.Errorf("%w: minimum lag cannot be negative", ErrInvalidArgument)
	}

	return &TaskDependency{
		ID:              uuid.NewString(),
		TaskID:          taskID,
		DependsOnTaskID: dependsOnTaskID,
		Type:            depType.Normalize(),
		Blocking:        blocking,
		MinimumLag:      minimumLag,
		CreatedAt:       createdAt,
	}, nil
}

// DependencyResult is the immutable outcome of a dependency readiness check.
type DependencyResult struct {
	Satisfied       bool
	BlockingTaskIDs []string
	Reasons         []string
}

// DependenciesSatisfied returns the satisfied result.
func DependenciesSatisfied() DependencyResult {
	return DependencyResult{Satisfied: true}
}

// DependenciesBlocked returns a blocked result carrying the unsatisfied
// edge targets and human-readable reasons.
func DependenciesBlocked(blockingTaskIDs, reasons []string) DependencyResult {
	return DependencyResult{
		Satisfied:       false,
		BlockingTaskIDs: blockingTaskIDs,
		Reasons:         reasons,
	}
}

// satisfiedBy reports whether the edge is satisfied by the current state of
// its depended-on task. The switch over DependencyType is deliberately
// closed; unknown tags are normalized at construction.
func (d *TaskDependency) satisfiedBy(dependsOn *Task) bool {
	switch d.Type {
	case DependencyStartToStart:
		return dependsOn.StartedAt != nil ||
			dependsOn.Status == TaskStatusInProgress ||
			dependsOn.Status == TaskStatusCompleted
	case DependencyFinishToStart, DependencyFinishToFinish:
		return dependsOn.Status == TaskStatusCompleted
	default:
		return dependsOn.Status == TaskStatusCompleted
	}
}

// reasonFor builds the human-readable reason for an unsatisfied edge.
func (d *TaskDependency) reasonFor(dependsOn *Task) string {
	if d.Type == DependencyStartToStart {
		return fmt.Sprintf("Task %s must start before this task", dependsOn.Title)
	}
	return fmt.Sprintf("Task %s must complete first", dependsOn.Title)
}
