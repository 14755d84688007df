package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
)

// TimeEntryRepository handles database operations for task time entries.
type TimeEntryRepository struct {
	pool *pgxpool.Pool
}

// NewTimeEntryRepository creates a new TimeEntryRepository.
func NewTimeEntryRepository(pool *pgxpool.Pool) *TimeEntryRepository {
	return &TimeEntryRepository{pool: pool}
}

// Insert persists a new time entry within a transaction.
func (r *TimeEntryRepository) Insert(ctx context.Context, tx pgx.Tx, e *domain.TaskTimeEntry) error {
	query, args, err := psql.
		Insert("task_time_entries").
		Columns("id", "task_id", "user_id", "started_at", "ended_at", "notes").
		Values(e.ID, e.TaskID, e.UserID, e.StartedAt, e.EndedAt, e.Notes).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert time entry: %w", err)
	}

	return nil
}

// Update persists the closed state of a time entry within a transaction.
func (r *TimeEntryRepository) Update(ctx context.Context, tx pgx.Tx, e *domain.TaskTimeEntry) error {
	query, args, err := psql.
		Update("task_time_entries").
		Set("ended_at", e.EndedAt).
		Set("notes", e.Notes).
		Where(sq.Eq{"id": e.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Update query for entry %s: %w", e.ID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update time entry: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTimeEntryNotFound
	}

	return nil
}

// ListByTaskID retrieves the time entries of a task, oldest first.
func (r *TimeEntryRepository) ListByTaskID(ctx context.Context, taskID string) ([]*domain.TaskTimeEntry, error) {
	query, args, err := psql.
		Select("id", "task_id", "user_id", "started_at", "ended_at", "notes").
		From("task_time_entries").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("started_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByTaskID query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query time entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TaskTimeEntry
	for rows.Next() {
		var e domain.TaskTimeEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &e.StartedAt, &e.EndedAt, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
