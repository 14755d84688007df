package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verdantops/growtask/internal/domain"
)

// Watcher and time-entry operations live beside the task transitions but
// carry their own simpler lifecycles.

// AddWatcher subscribes a user to a task.
func (s *WorkflowService) AddWatcher(ctx context.Context, taskID, userID string) (*domain.TaskWatcher, error) {
	if _, err := s.getActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, _, err := s.loadAggregate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	before := len(task.Watchers())
	watcher, err := task.AddWatcher(userID)
	if err != nil {
		return nil, err
	}

	// Set semantics: nothing to persist when the user was already watching.
	if len(task.Watchers()) > before {
		if err := s.watcherRepo.Insert(ctx, tx, watcher); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("watcher added", "task_id", taskID, "user_id", userID)
	return watcher, nil
}

// RemoveWatcher unsubscribes a user from a task. Removing an absent
// watcher succeeds silently.
func (s *WorkflowService) RemoveWatcher(ctx context.Context, taskID, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, _, err := s.loadAggregate(ctx, tx, taskID)
	if err != nil {
		return err
	}

	task.RemoveWatcher(userID)
	if err := s.watcherRepo.Delete(ctx, tx, taskID, userID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("watcher removed", "task_id", taskID, "user_id", userID)
	return nil
}

// StartTimeEntry opens a time entry on a task for a user.
func (s *WorkflowService) StartTimeEntry(ctx context.Context, taskID, userID string, startedAt *time.Time, notes string) (*domain.TaskTimeEntry, error) {
	if _, err := s.getActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, _, err := s.loadAggregate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	entry, err := task.StartTimeEntry(userID, startedAt, notes)
	if err != nil {
		return nil, err
	}

	if err := s.timeEntryRepo.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("time entry started", "task_id", taskID, "user_id", userID, "entry_id", entry.ID)
	return entry, nil
}

// CompleteTimeEntry closes an open time entry on a task.
func (s *WorkflowService) CompleteTimeEntry(ctx context.Context, taskID, entryID string, endedAt time.Time, notes string) (*domain.TaskTimeEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, _, err := s.loadAggregate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	var entry *domain.TaskTimeEntry
	for _, e := range task.TimeEntries() {
		if e.ID == entryID {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTimeEntryNotFound, entryID)
	}

	if err := entry.Complete(endedAt, notes); err != nil {
		return nil, err
	}

	if err := s.timeEntryRepo.Update(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("time entry completed", "task_id", taskID, "entry_id", entryID)
	return entry, nil
}
