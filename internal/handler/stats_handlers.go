package handler

import (
	"net/http"
	"time"

	"github.com/verdantops/growtask/internal/handler/dto"
	"github.com/verdantops/growtask/internal/middleware"
)

// handleGetStats handles GET /api/v1/stats: task counts for the caller's site.
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	stats, err := h.taskRepo.GetSiteStats(r.Context(), user.SiteID, time.Now().UTC())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.StatsResponse{
		TotalTasks:    stats.TotalTasks,
		TasksByStatus: stats.TasksByStatus,
		OverdueCount:  stats.OverdueCount,
		BlockedCount:  stats.BlockedCount,
	})
}
