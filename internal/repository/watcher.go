package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
)

// WatcherRepository handles database operations for task watchers.
type WatcherRepository struct {
	pool *pgxpool.Pool
}

// NewWatcherRepository creates a new WatcherRepository.
func NewWatcherRepository(pool *pgxpool.Pool) *WatcherRepository {
	return &WatcherRepository{pool: pool}
}

// Insert persists a watcher within a transaction. The unique constraint on
// (task_id, user_id) backs the aggregate's set semantics; the aggregate
// already no-ops duplicates so conflicts are skipped silently.
func (r *WatcherRepository) Insert(ctx context.Context, tx pgx.Tx, w *domain.TaskWatcher) error {
	query, args, err := psql.
		Insert("task_watchers").
		Columns("id", "task_id", "user_id", "created_at").
		Values(w.ID, w.TaskID, w.UserID, w.CreatedAt).
		Suffix("ON CONFLICT (task_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build Insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert watcher: %w", err)
	}

	return nil
}

// Delete removes a watcher within a transaction. Deleting an absent
// watcher is a no-op.
func (r *WatcherRepository) Delete(ctx context.Context, tx pgx.Tx, taskID, userID string) error {
	query, args, err := psql.
		Delete("task_watchers").
		Where(sq.Eq{"task_id": taskID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete watcher: %w", err)
	}

	return nil
}

// ListByTaskID retrieves the watchers of a task.
func (r *WatcherRepository) ListByTaskID(ctx context.Context, taskID string) ([]*domain.TaskWatcher, error) {
	query, args, err := psql.
		Select("id", "task_id", "user_id", "created_at").
		From("task_watchers").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByTaskID query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchers: %w", err)
	}
	defer rows.Close()

	var watchers []*domain.TaskWatcher
	for rows.Next() {
		var w domain.TaskWatcher
		if err := rows.Scan(&w.ID, &w.TaskID, &w.UserID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		watchers = append(watchers, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return watchers, nil
}
