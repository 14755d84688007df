package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "site_id", "creator_id", "type", "custom_type_label", "title",
	"description", "assignee_id", "assignee_role", "assigner_id", "status",
	"priority", "due_date", "started_at", "completed_at", "cancelled_at",
	"cancellation_reason", "blocking_reason", "related_entity_type",
	"related_entity_id", "required_sop_ids", "required_training_ids",
	"created_at", "updated_at",
}

// TaskRepository handles database operations for the task table. It reads
// and writes scalar aggregate state; owned collections have their own
// repositories and the service layer assembles the full aggregate.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTaskState scans a single row into a TaskState snapshot.
func scanTaskState(row pgx.Row) (*domain.TaskState, error) {
	var st domain.TaskState
	err := row.Scan(
		&st.ID,
		&st.SiteID,
		&st.CreatorID,
		&st.Type,
		&st.CustomTypeLabel,
		&st.Title,
		&st.Description,
		&st.AssigneeID,
		&st.AssigneeRole,
		&st.AssignerID,
		&st.Status,
		&st.Priority,
		&st.DueDate,
		&st.StartedAt,
		&st.CompletedAt,
		&st.CancelledAt,
		&st.CancellationReason,
		&st.BlockingReason,
		&st.RelatedEntityType,
		&st.RelatedEntityID,
		&st.RequiredSOPIDs,
		&st.RequiredTrainingIDs,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &st, nil
}

// scanTaskStates scans multiple rows into TaskState snapshots.
func scanTaskStates(rows pgx.Rows) ([]*domain.TaskState, error) {
	defer rows.Close()

	var states []*domain.TaskState
	for rows.Next() {
		st, err := scanTaskState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return states, nil
}

// GetStateByID retrieves a task's scalar state by ID.
func (r *TaskRepository) GetStateByID(ctx context.Context, taskID string) (*domain.TaskState, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetStateByID query: %w", err)
	}

	return scanTaskState(r.pool.QueryRow(ctx, query, args...))
}

// GetStateByIDForUpdate retrieves a task's scalar state with a FOR UPDATE
// lock (within transaction).
func (r *TaskRepository) GetStateByIDForUpdate(ctx context.Context, tx pgx.Tx, taskID string) (*domain.TaskState, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetStateByIDForUpdate query for task %s: %w", taskID, err)
	}

	return scanTaskState(tx.QueryRow(ctx, query, args...))
}

// GetStatesByIDs retrieves scalar state for a batch of task ids. Used to
// load dependency candidates.
func (r *TaskRepository) GetStatesByIDs(ctx context.Context, taskIDs []string) ([]*domain.TaskState, error) {
	if len(taskIDs) == 0 {
		return []*domain.TaskState{}, nil
	}

	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetStatesByIDs query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks by ids: %w", err)
	}

	return scanTaskStates(rows)
}

// textArray coerces a nil id set to an empty array; the columns are NOT NULL.
func textArray(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// Create inserts a new task row within a transaction. The aggregate's id
// and timestamps are generated by the domain factory, not the database.
func (r *TaskRepository) Create(ctx context.Context, tx pgx.Tx, t *domain.Task) error {
	query, args, err := psql.
		Insert("tasks").
		Columns(taskColumns...).
		Values(
			t.ID, t.SiteID, t.CreatorID, t.Type, t.CustomTypeLabel, t.Title,
			t.Description, t.AssigneeID, t.AssigneeRole, t.AssignerID, t.Status,
			t.Priority, t.DueDate, t.StartedAt, t.CompletedAt, t.CancelledAt,
			t.CancellationReason, t.BlockingReason, t.RelatedEntityType,
			t.RelatedEntityID, textArray(t.RequiredSOPIDs()), textArray(t.RequiredTrainingIDs()),
			t.CreatedAt, t.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Create query for task: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

// Save persists the mutated scalar state of a task. The caller supplies
// the updated_at value observed at load time; a zero-row update means the
// task changed under us and surfaces as ErrConcurrentModification.
func (r *TaskRepository) Save(ctx context.Context, tx pgx.Tx, t *domain.Task, loadedUpdatedAt time.Time) error {
	query, args, err := psql.
		Update("tasks").
		Set("type", t.Type).
		Set("custom_type_label", t.CustomTypeLabel).
		Set("title", t.Title).
		Set("description", t.Description).
		Set("assignee_id", t.AssigneeID).
		Set("assignee_role", t.AssigneeRole).
		Set("assigner_id", t.AssignerID).
		Set("status", t.Status).
		Set("priority", t.Priority).
		Set("due_date", t.DueDate).
		Set("started_at", t.StartedAt).
		Set("completed_at", t.CompletedAt).
		Set("cancelled_at", t.CancelledAt).
		Set("cancellation_reason", t.CancellationReason).
		Set("blocking_reason", t.BlockingReason).
		Set("related_entity_type", t.RelatedEntityType).
		Set("related_entity_id", t.RelatedEntityID).
		Set("required_sop_ids", textArray(t.RequiredSOPIDs())).
		Set("required_training_ids", textArray(t.RequiredTrainingIDs())).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{
			"id":         t.ID,
			"updated_at": loadedUpdatedAt,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Save query for task %s: %w", t.ID, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}

	return nil
}

// FindOverdue finds non-terminal tasks in a site whose due date has passed.
func (r *TaskRepository) FindOverdue(ctx context.Context, siteID string, now time.Time) ([]*domain.TaskState, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"site_id": siteID}).
		Where(sq.Lt{"due_date": now}).
		Where(sq.Eq{"status": []domain.TaskStatus{
			domain.TaskStatusPending,
			domain.TaskStatusInProgress,
			domain.TaskStatusBlocked,
		}}).
		OrderBy("due_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindOverdue query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query overdue tasks: %w", err)
	}

	return scanTaskStates(rows)
}
