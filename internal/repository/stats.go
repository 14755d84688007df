package repository

import (
	"context"
	"fmt"
	"time"
)

// SiteStatsResult holds aggregate task statistics for a site.
type SiteStatsResult struct {
	TotalTasks    int
	TasksByStatus map[string]int
	OverdueCount  int
	BlockedCount  int
}

// GetSiteStats retrieves task counts by status plus overdue and blocked
// totals for a site.
func (r *TaskRepository) GetSiteStats(ctx context.Context, siteID string, now time.Time) (*SiteStatsResult, error) {
	query := `
		SELECT
			status,
			COUNT(*),
			COUNT(CASE WHEN due_date < $2 AND status IN ('PENDING', 'IN_PROGRESS', 'BLOCKED') THEN 1 END)
		FROM tasks
		WHERE site_id = $1
		GROUP BY status
	`

	rows, err := r.pool.Query(ctx, query, siteID, now)
	if err != nil {
		return nil, fmt.Errorf("query site stats: %w", err)
	}
	defer rows.Close()

	result := &SiteStatsResult{TasksByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count, overdue int
		if err := rows.Scan(&status, &count, &overdue); err != nil {
			return nil, fmt.Errorf("scan site stats: %w", err)
		}
		result.TasksByStatus[status] = count
		result.TotalTasks += count
		result.OverdueCount += overdue
		if status == "BLOCKED" {
			result.BlockedCount = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}
