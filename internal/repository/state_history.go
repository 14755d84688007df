package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
)

// StateHistoryRepository handles database operations for the audit ledger.
// The ledger is insert-only; rows are never updated or deleted.
type StateHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStateHistoryRepository creates a new StateHistoryRepository.
func NewStateHistoryRepository(pool *pgxpool.Pool) *StateHistoryRepository {
	return &StateHistoryRepository{pool: pool}
}

// Append inserts a ledger entry within a transaction.
func (r *StateHistoryRepository) Append(ctx context.Context, tx pgx.Tx, entry *domain.TaskStateHistory) error {
	query, args, err := psql.
		Insert("task_state_history").
		Columns("id", "task_id", "from_status", "to_status", "actor_id", "reason", "created_at").
		Values(entry.ID, entry.TaskID, entry.FromStatus, entry.ToStatus, entry.ActorID, entry.Reason, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Append query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append state history: %w", err)
	}

	return nil
}

// ListByTaskID retrieves a task's ledger in chronological order.
func (r *StateHistoryRepository) ListByTaskID(ctx context.Context, taskID string) ([]*domain.TaskStateHistory, error) {
	query, args, err := psql.
		Select("id", "task_id", "from_status", "to_status", "actor_id", "reason", "created_at").
		From("task_state_history").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByTaskID query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query state history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.TaskStateHistory
	for rows.Next() {
		var entry domain.TaskStateHistory
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.Reason,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan state history: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}
