package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
)

// DependencyRepository handles database operations for dependency edges.
// Edges are immutable after creation.
type DependencyRepository struct {
	pool *pgxpool.Pool
}

// NewDependencyRepository creates a new DependencyRepository.
func NewDependencyRepository(pool *pgxpool.Pool) *DependencyRepository {
	return &DependencyRepository{pool: pool}
}

// Insert persists a dependency edge within a transaction.
func (r *DependencyRepository) Insert(ctx context.Context, tx pgx.Tx, dep *domain.TaskDependency) error {
	query, args, err := psql.
		Insert("task_dependencies").
		Columns("id", "task_id", "depends_on_task_id", "type", "blocking", "minimum_lag_seconds", "created_at").
		Values(dep.ID, dep.TaskID, dep.DependsOnTaskID, dep.Type, dep.Blocking, int64(dep.MinimumLag.Seconds()), dep.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert dependency: %w", err)
	}

	return nil
}

// ListByTaskID retrieves the dependency edges owned by a task.
func (r *DependencyRepository) ListByTaskID(ctx context.Context, taskID string) ([]*domain.TaskDependency, error) {
	query, args, err := psql.
		Select("id", "task_id", "depends_on_task_id", "type", "blocking", "minimum_lag_seconds", "created_at").
		From("task_dependencies").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByTaskID query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []*domain.TaskDependency
	for rows.Next() {
		dep, err := scanDependency(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return deps, nil
}

func scanDependency(row pgx.Row) (*domain.TaskDependency, error) {
	var dep domain.TaskDependency
	var lagSeconds int64
	err := row.Scan(
		&dep.ID,
		&dep.TaskID,
		&dep.DependsOnTaskID,
		&dep.Type,
		&dep.Blocking,
		&lagSeconds,
		&dep.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan dependency: %w", err)
	}
	dep.MinimumLag = time.Duration(lagSeconds) * time.Second
	return &dep, nil
}
