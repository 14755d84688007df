package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/verdantops/growtask/internal/domain"
)

// TaskListFilters holds all supported filters for task listing.
type TaskListFilters struct {
	SiteID     string   // Required: filter by site
	Statuses   []string // Optional: filter by status
	AssigneeID *string  // Optional: filter by assignee
	Unassigned bool     // Optional: show only unassigned
	Types      []string // Optional: filter by task type
	Priorities []string // Optional: filter by priority
	Overdue    bool     // Optional: show only overdue
	Sort       []string // Optional: sort fields (with - prefix for DESC)
	Limit      int      // Required: page size
	Offset     int      // Required: page offset
}

// priorityOrder expresses priority ranking in SQL since priorities are
// stored as text.
const priorityOrder = "CASE priority WHEN 'critical' THEN 1 WHEN 'high' THEN 2 WHEN 'medium' THEN 3 WHEN 'low' THEN 4 END"

// applyListFilters adds the filter conditions shared by List and its count
// query.
func applyListFilters(qb sq.SelectBuilder, filters TaskListFilters, now time.Time) sq.SelectBuilder {
	qb = qb.Where(sq.Eq{"site_id": filters.SiteID})

	if len(filters.Statuses) > 0 {
		qb = qb.Where(sq.Eq{"status": filters.Statuses})
	}
	if filters.Unassigned {
		qb = qb.Where(sq.Eq{"assignee_id": nil})
	} else if filters.AssigneeID != nil {
		qb = qb.Where(sq.Eq{"assignee_id": *filters.AssigneeID})
	}
	if len(filters.Types) > 0 {
		qb = qb.Where(sq.Eq{"type": filters.Types})
	}
	if len(filters.Priorities) > 0 {
		qb = qb.Where(sq.Eq{"priority": filters.Priorities})
	}
	if filters.Overdue {
		qb = qb.Where(sq.Lt{"due_date": now}).
			Where(sq.Eq{"status": []domain.TaskStatus{
				domain.TaskStatusPending,
				domain.TaskStatusInProgress,
				domain.TaskStatusBlocked,
			}})
	}

	return qb
}

// List retrieves task scalar state with filters and pagination, plus the
// unpaginated total count.
func (r *TaskRepository) List(ctx context.Context, filters TaskListFilters, now time.Time) ([]*domain.TaskState, int, error) {
	qb := applyListFilters(psql.Select(taskColumns...).From("tasks"), filters, now)

	// Default sort: priority first, oldest first within a priority
	if len(filters.Sort) == 0 {
		qb = qb.OrderBy(priorityOrder + " ASC").OrderBy("created_at ASC")
	} else {
		for _, sort := range filters.Sort {
			field, dir := sort, "ASC"
			if strings.HasPrefix(sort, "-") {
				field, dir = sort[1:], "DESC"
			}
			if field == "priority" {
				qb = qb.OrderBy(priorityOrder + " " + dir)
			} else {
				qb = qb.OrderBy(field + " " + dir)
			}
		}
	}

	qb = qb.Limit(uint64(filters.Limit)).Offset(uint64(filters.Offset))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}

	states, err := scanTaskStates(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := applyListFilters(psql.Select("COUNT(*)").From("tasks"), filters, now).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build List count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	return states, total, nil
}
