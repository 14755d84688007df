package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/verdantops/growtask/internal/config"
	"github.com/verdantops/growtask/internal/domain"
	"github.com/verdantops/growtask/internal/handler/dto"
	"github.com/verdantops/growtask/internal/middleware"
	"github.com/verdantops/growtask/internal/repository"
	"github.com/verdantops/growtask/internal/service"
)

// handleCreateTask handles POST /api/v1/tasks.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	siteID := req.SiteID
	if siteID == "" {
		siteID = user.SiteID
	}

	params := service.CreateTaskParams{
		SiteID:              siteID,
		CreatorID:           user.ID,
		AssignerID:          user.ID,
		Title:               req.Title,
		Description:         req.Description,
		Type:                domain.TaskType(req.Type),
		CustomTypeLabel:     req.CustomTypeLabel,
		Priority:            domain.TaskPriority(req.Priority),
		DueDate:             req.DueDate,
		AssigneeID:          req.AssigneeID,
		AssigneeRole:        req.AssigneeRole,
		RelatedEntityType:   req.RelatedEntityType,
		RelatedEntityID:     req.RelatedEntityID,
		RequiredSOPIDs:      req.RequiredSOPIDs,
		RequiredTrainingIDs: req.RequiredTrainingIDs,
	}
	for _, spec := range req.Dependencies {
		blocking := true
		if spec.Blocking != nil {
			blocking = *spec.Blocking
		}
		params.Dependencies = append(params.Dependencies, service.DependencySpec{
			DependsOnTaskID: spec.DependsOnTaskID,
			Type:            domain.DependencyType(spec.Type),
			Blocking:        blocking,
			MinimumLag:      time.Duration(spec.MinimumLagSeconds) * time.Second,
		})
	}

	task, err := h.workflow.CreateTask(r.Context(), params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

// handleListTasks handles GET /api/v1/tasks.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	q := r.URL.Query()

	filters := repository.TaskListFilters{
		SiteID: user.SiteID,
		Limit:  config.DefaultListLimit,
	}
	if v := q.Get("status"); v != "" {
		filters.Statuses = strings.Split(v, ",")
	}
	if v := q.Get("type"); v != "" {
		filters.Types = strings.Split(v, ",")
	}
	if v := q.Get("priority"); v != "" {
		filters.Priorities = strings.Split(v, ",")
	}
	if v := q.Get("assignee"); v != "" {
		if v == "me" {
			v = user.ID
		}
		filters.AssigneeID = &v
	}
	filters.Unassigned = q.Get("unassigned") == "true"
	filters.Overdue = q.Get("overdue") == "true"
	if v := q.Get("sort"); v != "" {
		filters.Sort = strings.Split(v, ",")
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > config.MaxListLimit {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and "+strconv.Itoa(config.MaxListLimit))
			return
		}
		filters.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "offset must be non-negative")
			return
		}
		filters.Offset = offset
	}

	tasks, total, err := h.workflow.ListTasks(r.Context(), filters)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.ListTasksResponse{
		Tasks:  make([]dto.TaskResponse, 0, len(tasks)),
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, dto.NewTaskResponse(t))
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleGetTask handles GET /api/v1/tasks/{id}.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.workflow.GetTask(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleUpdateTask handles PATCH /api/v1/tasks/{id}.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	params := service.UpdateTaskParams{
		DueDate:             req.DueDate,
		ClearDueDate:        req.ClearDueDate,
		Description:         req.Description,
		CustomTypeLabel:     req.CustomTypeLabel,
		RelatedEntityType:   req.RelatedEntityType,
		RelatedEntityID:     req.RelatedEntityID,
		RequiredSOPIDs:      req.RequiredSOPIDs,
		RequiredTrainingIDs: req.RequiredTrainingIDs,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		params.Priority = &p
	}

	task, err := h.workflow.UpdateTask(r.Context(), taskID, params, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleCheckReadiness handles GET /api/v1/tasks/{id}/readiness.
func (h *Handler) handleCheckReadiness(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	readiness, err := h.workflow.CheckReadiness(r.Context(), taskID, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, newReadinessResponse(readiness))
}

// handleGetHistory handles GET /api/v1/tasks/{id}/history.
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.workflow.GetTask(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	history := task.History()
	resp := make([]dto.HistoryResponse, 0, len(history))
	for _, entry := range history {
		resp = append(resp, dto.NewHistoryResponse(entry))
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleStartTask handles POST /api/v1/tasks/{id}/start.
func (h *Handler) handleStartTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	readiness, err := h.workflow.StartTask(r.Context(), taskID, user.ID)
	if err != nil {
		// A readiness refusal carries the evaluation results for the client.
		if errors.Is(err, domain.ErrTaskNotReady) && readiness != nil {
			respondJSON(w, http.StatusConflict, newReadinessResponse(readiness))
			return
		}
		respondDomainError(w, err)
		return
	}

	task, err := h.workflow.GetTask(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleBlockTask handles POST /api/v1/tasks/{id}/block.
func (h *Handler) handleBlockTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.BlockTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	task, err := h.workflow.BlockTask(r.Context(), taskID, req.Reason, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleUnblockTask handles POST /api/v1/tasks/{id}/unblock.
func (h *Handler) handleUnblockTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.workflow.UnblockTask(r.Context(), taskID, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleCompleteTask handles POST /api/v1/tasks/{id}/complete.
func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	task, err := h.workflow.CompleteTask(r.Context(), taskID, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleCancelTask handles POST /api/v1/tasks/{id}/cancel.
func (h *Handler) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.CancelTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	task, err := h.workflow.CancelTask(r.Context(), taskID, req.Reason, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleAssignTask handles POST /api/v1/tasks/{id}/assign.
func (h *Handler) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	task, err := h.workflow.AssignTask(r.Context(), taskID, req.AssigneeID, req.AssigneeRole, user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

// handleAddWatcher handles POST /api/v1/tasks/{id}/watchers.
func (h *Handler) handleAddWatcher(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.AddWatcherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	// Default to self-subscription.
	userID := req.UserID
	if userID == "" {
		userID = user.ID
	}

	watcher, err := h.workflow.AddWatcher(r.Context(), taskID, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.WatcherResponse{
		ID:        watcher.ID,
		UserID:    watcher.UserID,
		CreatedAt: watcher.CreatedAt,
	})
}

// handleRemoveWatcher handles DELETE /api/v1/tasks/{id}/watchers/{userID}.
func (h *Handler) handleRemoveWatcher(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	userID := r.PathValue("userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "user id is required")
		return
	}

	if err := h.workflow.RemoveWatcher(r.Context(), taskID, userID); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleStartTimeEntry handles POST /api/v1/tasks/{id}/time-entries.
func (h *Handler) handleStartTimeEntry(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.StartTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	entry, err := h.workflow.StartTimeEntry(r.Context(), taskID, user.ID, req.StartedAt, req.Notes)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewTimeEntryResponse(entry))
}

// handleCompleteTimeEntry handles PATCH /api/v1/tasks/{id}/time-entries/{entryID}.
func (h *Handler) handleCompleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	entryID := r.PathValue("entryID")
	if entryID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "entry id is required")
		return
	}

	var req dto.CompleteTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	entry, err := h.workflow.CompleteTimeEntry(r.Context(), taskID, entryID, req.EndedAt, req.Notes)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTimeEntryResponse(entry))
}

// newReadinessResponse flattens a readiness evaluation for the wire.
func newReadinessResponse(r *service.Readiness) dto.ReadinessResponse {
	reasons := append([]string{}, r.Gating.Reasons...)
	reasons = append(reasons, r.Dependencies.Reasons...)

	return dto.ReadinessResponse{
		CanStart:           r.CanStart,
		Gated:              r.Gating.Gated,
		MissingSOPIDs:      r.Gating.MissingSOPIDs,
		MissingTrainingIDs: r.Gating.MissingTrainingIDs,
		DependenciesMet:    r.Dependencies.Satisfied,
		BlockingTaskIDs:    r.Dependencies.BlockingTaskIDs,
		Reasons:            reasons,
	}
}
