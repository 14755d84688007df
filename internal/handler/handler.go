package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
	"github.com/verdantops/growtask/internal/handler/dto"
	"github.com/verdantops/growtask/internal/middleware"
	"github.com/verdantops/growtask/internal/repository"
	"github.com/verdantops/growtask/internal/service"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pool           *pgxpool.Pool
	workflow       *service.WorkflowService
	historyRepo    *repository.StateHistoryRepository
	taskRepo       *repository.TaskRepository
	authMiddleware *middleware.AuthMiddleware
}

// New creates a new Handler instance with all dependencies.
func New(pool *pgxpool.Pool) *Handler {
	taskRepo := repository.NewTaskRepository(pool)
	historyRepo := repository.NewStateHistoryRepository(pool)
	depRepo := repository.NewDependencyRepository(pool)
	watcherRepo := repository.NewWatcherRepository(pool)
	timeEntryRepo := repository.NewTimeEntryRepository(pool)
	complianceRepo := repository.NewComplianceRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	siteRepo := repository.NewSiteRepository(pool)

	workflow := service.NewWorkflowService(
		pool, taskRepo, historyRepo, depRepo, watcherRepo, timeEntryRepo,
		complianceRepo, userRepo, siteRepo, domain.SystemClock(),
	)

	return &Handler{
		pool:           pool,
		workflow:       workflow,
		historyRepo:    historyRepo,
		taskRepo:       taskRepo,
		authMiddleware: middleware.NewAuthMiddleware(userRepo),
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	auth := h.authMiddleware.Authenticate

	// Task CRUD and projections
	mux.Handle("POST /api/v1/tasks", auth(http.HandlerFunc(h.handleCreateTask)))
	mux.Handle("GET /api/v1/tasks", auth(http.HandlerFunc(h.handleListTasks)))
	mux.Handle("GET /api/v1/tasks/{id}", auth(http.HandlerFunc(h.handleGetTask)))
	mux.Handle("PATCH /api/v1/tasks/{id}", auth(http.HandlerFunc(h.handleUpdateTask)))
	mux.Handle("GET /api/v1/tasks/{id}/readiness", auth(http.HandlerFunc(h.handleCheckReadiness)))
	mux.Handle("GET /api/v1/tasks/{id}/history", auth(http.HandlerFunc(h.handleGetHistory)))

	// Transitions
	mux.Handle("POST /api/v1/tasks/{id}/start", auth(http.HandlerFunc(h.handleStartTask)))
	mux.Handle("POST /api/v1/tasks/{id}/block", auth(http.HandlerFunc(h.handleBlockTask)))
	mux.Handle("POST /api/v1/tasks/{id}/unblock", auth(http.HandlerFunc(h.handleUnblockTask)))
	mux.Handle("POST /api/v1/tasks/{id}/complete", auth(http.HandlerFunc(h.handleCompleteTask)))
	mux.Handle("POST /api/v1/tasks/{id}/cancel", auth(http.HandlerFunc(h.handleCancelTask)))
	mux.Handle("POST /api/v1/tasks/{id}/assign", auth(http.HandlerFunc(h.handleAssignTask)))

	// Watchers and time entries
	mux.Handle("POST /api/v1/tasks/{id}/watchers", auth(http.HandlerFunc(h.handleAddWatcher)))
	mux.Handle("DELETE /api/v1/tasks/{id}/watchers/{userID}", auth(http.HandlerFunc(h.handleRemoveWatcher)))
	mux.Handle("POST /api/v1/tasks/{id}/time-entries", auth(http.HandlerFunc(h.handleStartTimeEntry)))
	mux.Handle("PATCH /api/v1/tasks/{id}/time-entries/{entryID}", auth(http.HandlerFunc(h.handleCompleteTimeEntry)))

	// Stats
	mux.Handle("GET /api/v1/stats", auth(http.HandlerFunc(h.handleGetStats)))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Ping checks if the database is reachable (used for testing).
func (h *Handler) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps a domain error and writes it.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractTaskID extracts and validates the task ID path parameter.
// Returns (taskID, true) if valid, ("", false) if invalid (error already sent to client).
func extractTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.PathValue("id")
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is required")
		return "", false
	}

	if _, err := uuid.Parse(taskID); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id must be a valid UUID")
		return "", false
	}

	return taskID, true
}
