package dto

import (
	"time"

	"github.com/verdantops/growtask/internal/domain"
)

// TaskResponse is the JSON projection of a task aggregate.
type TaskResponse struct {
	ID              string     `json:"id"`
	SiteID          string     `json:"site_id"`
	CreatorID       string     `json:"creator_id"`
	Type            string     `json:"type"`
	CustomTypeLabel string     `json:"custom_type_label,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	AssigneeID      *string    `json:"assignee_id,omitempty"`
	AssigneeRole    string     `json:"assignee_role,omitempty"`
	AssignerID      string     `json:"assigner_id"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`

	CancellationReason string  `json:"cancellation_reason,omitempty"`
	BlockingReason     *string `json:"blocking_reason,omitempty"`

	RelatedEntityType string `json:"related_entity_type,omitempty"`
	RelatedEntityID   string `json:"related_entity_id,omitempty"`

	RequiredSOPIDs      []string `json:"required_sop_ids,omitempty"`
	RequiredTrainingIDs []string `json:"required_training_ids,omitempty"`

	IsOverdue bool `json:"is_overdue"`

	Dependencies []DependencyResponse `json:"dependencies,omitempty"`
	Watchers     []WatcherResponse    `json:"watchers,omitempty"`
	TimeEntries  []TimeEntryResponse  `json:"time_entries,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DependencyResponse is the JSON projection of a dependency edge.
type DependencyResponse struct {
	ID                string    `json:"id"`
	DependsOnTaskID   string    `json:"depends_on_task_id"`
	Type              string    `json:"type"`
	Blocking          bool      `json:"blocking"`
	MinimumLagSeconds int64     `json:"minimum_lag_seconds"`
	CreatedAt         time.Time `json:"created_at"`
}

// WatcherResponse is the JSON projection of a task watcher.
type WatcherResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TimeEntryResponse is the JSON projection of a time entry.
type TimeEntryResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// HistoryResponse is the JSON projection of an audit ledger entry.
type HistoryResponse struct {
	ID         string    `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReadinessResponse reports the outcome of a readiness evaluation.
type ReadinessResponse struct {
	CanStart           bool     `json:"can_start"`
	Gated              bool     `json:"gated"`
	MissingSOPIDs      []string `json:"missing_sop_ids,omitempty"`
	MissingTrainingIDs []string `json:"missing_training_ids,omitempty"`
	DependenciesMet    bool     `json:"dependencies_met"`
	BlockingTaskIDs    []string `json:"blocking_task_ids,omitempty"`
	Reasons            []string `json:"reasons,omitempty"`
}

// ListTasksResponse is a page of tasks with the unpaginated total.
type ListTasksResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// StatsResponse reports aggregate task statistics for a site.
type StatsResponse struct {
	TotalTasks    int            `json:"total_tasks"`
	TasksByStatus map[string]int `json:"tasks_by_status"`
	OverdueCount  int            `json:"overdue_count"`
	BlockedCount  int            `json:"blocked_count"`
}

// NewTaskResponse builds the full projection of a task aggregate.
func NewTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:              t.ID,
		SiteID:          t.SiteID,
		CreatorID:       t.CreatorID,
		Type:            string(t.Type),
		CustomTypeLabel: t.CustomTypeLabel,
		Title:           t.Title,
		Description:     t.Description,
		AssigneeID:      t.AssigneeID,
		AssigneeRole:    t.AssigneeRole,
		AssignerID:      t.AssignerID,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		DueDate:         t.DueDate,
		StartedAt:       t.StartedAt,
		CompletedAt:     t.CompletedAt,
		CancelledAt:     t.CancelledAt,

		CancellationReason: t.CancellationReason,
		BlockingReason:     t.BlockingReason,

		RelatedEntityType: t.RelatedEntityType,
		RelatedEntityID:   t.RelatedEntityID,

		RequiredSOPIDs:      t.RequiredSOPIDs(),
		RequiredTrainingIDs: t.RequiredTrainingIDs(),

		IsOverdue: t.IsOverdue(),

		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}

	for _, dep := range t.Dependencies() {
		resp.Dependencies = append(resp.Dependencies, DependencyResponse{
			ID:                dep.ID,
			DependsOnTaskID:   dep.DependsOnTaskID,
			Type:              string(dep.Type),
			Blocking:          dep.Blocking,
			MinimumLagSeconds: int64(dep.MinimumLag.Seconds()),
			CreatedAt:         dep.CreatedAt,
		})
	}
	for _, w := range t.Watchers() {
		resp.Watchers = append(resp.Watchers, WatcherResponse{
			ID:        w.ID,
			UserID:    w.UserID,
			CreatedAt: w.CreatedAt,
		})
	}
	for _, e := range t.TimeEntries() {
		resp.TimeEntries = append(resp.TimeEntries, NewTimeEntryResponse(e))
	}

	return resp
}

// NewTimeEntryResponse builds the projection of a time entry.
func NewTimeEntryResponse(e *domain.TaskTimeEntry) TimeEntryResponse {
	resp := TimeEntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		StartedAt: e.StartedAt,
		EndedAt:   e.EndedAt,
		Notes:     e.Notes,
	}
	if d, ok := e.Duration(); ok {
		seconds := int64(d.Seconds())
		resp.DurationSeconds = &seconds
	}
	return resp
}

// NewHistoryResponse builds the projection of a ledger entry.
func NewHistoryResponse(h *domain.TaskStateHistory) HistoryResponse {
	return HistoryResponse{
		ID:         h.ID,
		FromStatus: string(h.FromStatus),
		ToStatus:   string(h.ToStatus),
		ActorID:    h.ActorID,
		Reason:     h.Reason,
		CreatedAt:  h.CreatedAt,
	}
}
