package dto

import "time"

// DependencySpec describes a dependency edge in a create request.
type DependencySpec struct {
	DependsOnTaskID   string `json:"depends_on_task_id"`
	Type              string `json:"type,omitempty"`
	Blocking          *bool  `json:"blocking,omitempty"`
	MinimumLagSeconds int64  `json:"minimum_lag_seconds,omitempty"`
}

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	SiteID          string     `json:"site_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Type            string     `json:"type,omitempty"`
	CustomTypeLabel string     `json:"custom_type_label,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	AssigneeID      *string    `json:"assignee_id,omitempty"`
	AssigneeRole    string     `json:"assignee_role,omitempty"`

	RelatedEntityType string `json:"related_entity_type,omitempty"`
	RelatedEntityID   string `json:"related_entity_id,omitempty"`

	RequiredSOPIDs      []string         `json:"required_sop_ids,omitempty"`
	RequiredTrainingIDs []string         `json:"required_training_ids,omitempty"`
	Dependencies        []DependencySpec `json:"dependencies,omitempty"`
}

// BlockTaskRequest represents the request body for POST /tasks/{id}/block.
type BlockTaskRequest struct {
	Reason string `json:"reason"`
}

// CancelTaskRequest represents the request body for POST /tasks/{id}/cancel.
type CancelTaskRequest struct {
	Reason string `json:"reason,omitempty"`
}

// AssignTaskRequest represents the request body for POST /tasks/{id}/assign.
type AssignTaskRequest struct {
	AssigneeID   *string `json:"assignee_id,omitempty"`
	AssigneeRole string  `json:"assignee_role,omitempty"`
}

// UpdateTaskRequest represents the request body for PATCH /tasks/{id}.
// Absent fields are left untouched.
type UpdateTaskRequest struct {
	Priority        *string    `json:"priority,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ClearDueDate    bool       `json:"clear_due_date,omitempty"`
	Description     *string    `json:"description,omitempty"`
	CustomTypeLabel *string    `json:"custom_type_label,omitempty"`

	RelatedEntityType *string `json:"related_entity_type,omitempty"`
	RelatedEntityID   *string `json:"related_entity_id,omitempty"`

	RequiredSOPIDs      []string `json:"required_sop_ids,omitempty"`
	RequiredTrainingIDs []string `json:"required_training_ids,omitempty"`
}

// AddWatcherRequest represents the request body for POST /tasks/{id}/watchers.
type AddWatcherRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// StartTimeEntryRequest represents the request body for POST /tasks/{id}/time-entries.
type StartTimeEntryRequest struct {
	StartedAt *time.Time `json:"started_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// CompleteTimeEntryRequest represents the request body for
// PATCH /tasks/{id}/time-entries/{entryID}.
type CompleteTimeEntryRequest struct {
	EndedAt time.Time `json:"ended_at"`
	Notes   string    `json:"notes,omitempty"`
}
