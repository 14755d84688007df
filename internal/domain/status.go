package domain

// TaskStatus represents the status of a task in the state machine.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// IsTerminal returns true if the status is terminal (no transitions allowed).
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskType classifies the cultivation work a task represents.
type TaskType string

const (
	TaskTypeGeneral       TaskType = "general"
	TaskTypeWatering      TaskType = "watering"
	TaskTypeFeeding       TaskType = "feeding"
	TaskTypePruning       TaskType = "pruning"
	TaskTypeTransplanting TaskType = "transplanting"
	TaskTypeHarvest       TaskType = "harvest"
	TaskTypeCleaning      TaskType = "cleaning"
	TaskTypeInspection    TaskType = "inspection"
	TaskTypeMaintenance   TaskType = "maintenance"
	TaskTypeCustom        TaskType = "custom"
)

// IsValid checks if the type is one of the allowed values.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeGeneral, TaskTypeWatering, TaskTypeFeeding, TaskTypePruning,
		TaskTypeTransplanting, TaskTypeHarvest, TaskTypeCleaning,
		TaskTypeInspection, TaskTypeMaintenance, TaskTypeCustom:
		return true
	default:
		return false
	}
}

// Normalize returns the type itself when valid, TaskTypeGeneral otherwise.
func (t TaskType) Normalize() TaskType {
	if t.IsValid() {
		return t
	}
	return TaskTypeGeneral
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	// TaskPriorityUndefined is the zero sentinel; it is never accepted by
	// UpdatePriority and is replaced by TaskPriorityMedium at creation.
	TaskPriorityUndefined TaskPriority = ""

	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// IsValid checks if the priority is one of the allowed non-sentinel values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	default:
		return false
	}
}
