package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verdantops/growtask/internal/domain"
	"github.com/verdantops/growtask/internal/repository"
)

// WorkflowService coordinates task workflow operations: it loads the
// aggregate and its collaborator data (compliance sets, dependency
// candidates), invokes the aggregate's guarded transitions, and persists
// the result. The aggregate itself never performs I/O.
type WorkflowService struct {
	pool           *pgxpool.Pool
	taskRepo       *repository.TaskRepository
	historyRepo    *repository.StateHistoryRepository
	depRepo        *repository.DependencyRepository
	watcherRepo    *repository.WatcherRepository
	timeEntryRepo  *repository.TimeEntryRepository
	complianceRepo *repository.ComplianceRepository
	userRepo       *repository.UserRepository
	siteRepo       *repository.SiteRepository
	clock          domain.Clock
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	historyRepo *repository.StateHistoryRepository,
	depRepo *repository.DependencyRepository,
	watcherRepo *repository.WatcherRepository,
	timeEntryRepo *repository.TimeEntryRepository,
	complianceRepo *repository.ComplianceRepository,
	userRepo *repository.UserRepository,
	siteRepo *repository.SiteRepository,
	clock domain.Clock,
) *WorkflowService {
	return &WorkflowService{
		pool:           pool,
		taskRepo:       taskRepo,
		historyRepo:    historyRepo,
		depRepo:        depRepo,
		watcherRepo:    watcherRepo,
		timeEntryRepo:  timeEntryRepo,
		complianceRepo: complianceRepo,
		userRepo:       userRepo,
		siteRepo:       siteRepo,
		clock:          clock,
	}
}

// Readiness bundles the two evaluation results a start decision rests on.
type Readiness struct {
	Gating       domain.GatingResult
	Dependencies domain.DependencyResult
	CanStart     bool
}

// DependencySpec describes a dependency edge requested at task creation.
type DependencySpec struct {
	DependsOnTaskID string
	Type            domain.DependencyType
	Blocking        bool
	MinimumLag      time.Duration
}

// CreateTaskParams carries the inputs for CreateTask.
type CreateTaskParams struct {
	SiteID          string
	CreatorID       string
	AssignerID      string
	Title           string
	Description     string
	Type            domain.TaskType
	CustomTypeLabel string
	Priority        domain.TaskPriority
	DueDate         *time.Time
	AssigneeID      *string
	AssigneeRole    string

	RelatedEntityType string
	RelatedEntityID   string

	RequiredSOPIDs      []string
	RequiredTrainingIDs []string
	Dependencies        []DependencySpec
}

// getActiveUser fetches a user by ID and verifies they are active.
func (s *WorkflowService) getActiveUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

// rollback discards a transaction, logging unexpected failures.
func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
		slog.Error("failed to rollback transaction", "error", err)
	}
}

// loadAggregate hydrates the full task aggregate under a FOR UPDATE lock.
// Returns the updated_at observed at load time for the optimistic save.
func (s *WorkflowService) loadAggregate(ctx context.Context, tx pgx.Tx, taskID string) (*domain.Task, time.Time, error) {
	st, err := s.taskRepo.GetStateByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, time.Time{}, err
	}
	loadedUpdatedAt := st.UpdatedAt

	if st.Dependencies, err = s.depRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, time.Time{}, err
	}
	if st.History, err = s.historyRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, time.Time{}, err
	}
	if st.Watchers, err = s.watcherRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, time.Time{}, err
	}
	if st.TimeEntries, err = s.timeEntryRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, time.Time{}, err
	}

	return domain.RehydrateTask(*st, s.clock), loadedUpdatedAt, nil
}

// mutate runs fn against the locked aggregate, then persists the scalar
// state and appends any history entries fn produced, all in one
// transaction.
func (s *WorkflowService) mutate(ctx context.Context, taskID string, fn func(t *domain.Task) error) (*domain.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, loadedUpdatedAt, err := s.loadAggregate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	prevHistory := len(task.History())

	if err := fn(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Save(ctx, tx, task, loadedUpdatedAt); err != nil {
		return nil, err
	}

	for _, entry := range task.History()[prevHistory:] {
		if err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return task, nil
}

// CreateTask builds a new task aggregate and persists it with its initial
// history marker and any requested dependency edges.
func (s *WorkflowService) CreateTask(ctx context.Context, p CreateTaskParams) (*domain.Task, error) {
	if _, err := s.siteRepo.GetByID(ctx, p.SiteID); err != nil {
		return nil, err
	}
	if _, err := s.getActiveUser(ctx, p.CreatorID); err != nil {
		return nil, err
	}

	task, err := domain.NewTask(domain.NewTaskParams{
		SiteID:              p.SiteID,
		CreatorID:           p.CreatorID,
		AssignerID:          p.AssignerID,
		Title:               p.Title,
		Description:         p.Description,
		Type:                p.Type,
		CustomTypeLabel:     p.CustomTypeLabel,
		Priority:            p.Priority,
		DueDate:             p.DueDate,
		AssigneeID:          p.AssigneeID,
		AssigneeRole:        p.AssigneeRole,
		RelatedEntityType:   p.RelatedEntityType,
		RelatedEntityID:     p.RelatedEntityID,
		RequiredSOPIDs:      p.RequiredSOPIDs,
		RequiredTrainingIDs: p.RequiredTrainingIDs,
	}, s.clock)
	if err != nil {
		return nil, err
	}

	// Verify dependency targets exist before accepting the edges.
	if len(p.Dependencies) > 0 {
		ids := make([]string, 0, len(p.Dependencies))
		for _, spec := range p.Dependencies {
			ids = append(ids, spec.DependsOnTaskID)
		}
		found, err := s.taskRepo.GetStatesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(found) != len(ids) {
			return nil, fmt.Errorf("%w: %d of %d dependency tasks found", domain.ErrDependencyTaskMissing, len(found), len(ids))
		}
		for _, spec := range p.Dependencies {
			if _, err := task.AddDependency(spec.DependsOnTaskID, spec.Type, spec.Blocking, spec.MinimumLag); err != nil {
				return nil, err
			}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if err := s.taskRepo.Create(ctx, tx, task); err != nil {
		return nil, err
	}
	for _, dep := range task.Dependencies() {
		if err := s.depRepo.Insert(ctx, tx, dep); err != nil {
			return nil, err
		}
	}
	for _, entry := range task.History() {
		if err := s.historyRepo.Append(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("task created",
		"task_id", task.ID,
		"site_id", task.SiteID,
		"creator_id", task.CreatorID,
	)

	return task, nil
}

// evaluateReadiness runs the gating and dependency evaluators for a task
// against the acting user's compliance state and the current dependency
// graph.
func (s *WorkflowService) evaluateReadiness(ctx context.Context, task *domain.Task, userID string) (*Readiness, error) {
	completedSOPs, err := s.complianceRepo.CompletedSOPIDs(ctx, userID, task.SiteID)
	if err != nil {
		return nil, fmt.Errorf("load sop acknowledgements: %w", err)
	}
	completedTraining, err := s.complianceRepo.CompletedTrainingIDs(ctx, userID, task.SiteID)
	if err != nil {
		return nil, fmt.Errorf("load training completions: %w", err)
	}
	gating := task.CheckGating(completedSOPs, completedTraining)

	deps := task.Dependencies()
	ids := make([]string, 0, len(deps))
	for _, dep := range deps {
		ids = append(ids, dep.DependsOnTaskID)
	}
	states, err := s.taskRepo.GetStatesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load dependency tasks: %w", err)
	}
	candidates := make([]*domain.Task, 0, len(states))
	for _, st := range states {
		candidates = append(candidates, domain.RehydrateTask(*st, s.clock))
	}

	depResult, err := task.CheckDependencies(candidates)
	if err != nil {
		return nil, err
	}

	return &Readiness{
		Gating:       gating,
		Dependencies: depResult,
		CanStart:     task.CanStart(gating, depResult),
	}, nil
}

// CheckReadiness evaluates whether a task could start now for the given
// user, without transitioning anything.
func (s *WorkflowService) CheckReadiness(ctx context.Context, taskID, userID string) (*Readiness, error) {
	if _, err := s.getActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return s.evaluateReadiness(ctx, task, userID)
}

// StartTask evaluates readiness and, when clear, starts the task. On
// refusal the readiness result is returned alongside ErrTaskNotReady so
// callers can surface the reasons.
func (s *WorkflowService) StartTask(ctx context.Context, taskID, actorID string) (*Readiness, error) {
	if _, err := s.getActiveUser(ctx, actorID); err != nil {
		return nil, err
	}

	var readiness *Readiness
	_, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		r, err := s.evaluateReadiness(ctx, t, actorID)
		if err != nil {
			return err
		}
		readiness = r
		if !r.CanStart && t.Status != domain.TaskStatusInProgress {
			return fmt.Errorf("%w: task %s", domain.ErrTaskNotReady, taskID)
		}
		return t.Start(actorID)
	})
	if err != nil {
		return readiness, err
	}

	slog.Info("task started", "task_id", taskID, "actor_id", actorID)
	return readiness, nil
}

// BlockTask blocks a task with a reason.
func (s *WorkflowService) BlockTask(ctx context.Context, taskID, reason, actorID string) (*domain.Task, error) {
	if _, err := s.getActiveUser(ctx, actorID); err != nil {
		return nil, err
	}

	task, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		return t.Block(reason, actorID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task blocked", "task_id", taskID, "actor_id", actorID, "reason", reason)
	return task, nil
}

// UnblockTask clears a task's blocking reason, returning a blocked task to
// pending.
func (s *WorkflowService) UnblockTask(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	if _, err := s.getActiveUser(ctx, actorID); err != nil {
		return nil, err
	}

	task, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		return t.Unblock(actorID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task unblocked", "task_id", taskID, "actor_id", actorID)
	return task, nil
}

// CompleteTask completes an in-progress task.
func (s *WorkflowService) CompleteTask(ctx context.Context, taskID, actorID string) (*domain.Task, error) {
	if _, err := s.getActiveUser(ctx, actorID); err != nil {
		return nil, err
	}

	task, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		return t.Complete(actorID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task completed", "task_id", taskID, "actor_id", actorID)
	return task, nil
}

// CancelTask cancels a non-completed task.
func (s *WorkflowService) CancelTask(ctx context.Context, taskID, reason, actorID string) (*domain.Task, error) {
	if _, err := s.getActiveUser(ctx, actorID); err != nil {
		return nil, err
	}

	task, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		return t.Cancel(reason, actorID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task cancelled", "task_id", taskID, "actor_id", actorID)
	return task, nil
}

// AssignTask sets the task's assignee and/or role.
func (s *WorkflowService) AssignTask(ctx context.Context, taskID string, assigneeID *string, assigneeRole, assignerID string) (*domain.Task, error) {
	if _, err := s.getActiveUser(ctx, assignerID); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if _, err := s.getActiveUser(ctx, *assigneeID); err != nil {
			return nil, err
		}
	}

	task, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		return t.Assign(assigneeID, assigneeRole, assignerID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task assigned", "task_id", taskID, "assigner_id", assignerID)
	return task, nil
}

// UpdateTask applies optional field updates to a task. Nil fields are left
// untouched.
type UpdateTaskParams struct {
	Priority        *domain.TaskPriority
	DueDate         *time.Time
	ClearDueDate    bool
	Description     *string
	CustomTypeLabel *string

	RelatedEntityType *string
	RelatedEntityID   *string

	RequiredSOPIDs      []string
	RequiredTrainingIDs []string
}

// UpdateTask applies the supplied field updates through the aggregate's
// guarded mutators.
func (s *WorkflowService) UpdateTask(ctx context.Context, taskID string, p UpdateTaskParams, actorID string) (*domain.Task, error) {
	if _, err := s.getActiveUser(ctx, actorID); err != nil {
		return nil, err
	}

	task, err := s.mutate(ctx, taskID, func(t *domain.Task) error {
		if p.Priority != nil {
			if err := t.UpdatePriority(*p.Priority, actorID); err != nil {
				return err
			}
		}
		if p.ClearDueDate {
			if err := t.UpdateDueDate(nil, actorID); err != nil {
				return err
			}
		} else if p.DueDate != nil {
			if err := t.UpdateDueDate(p.DueDate, actorID); err != nil {
				return err
			}
		}
		if p.Description != nil {
			if err := t.UpdateDescription(*p.Description, actorID); err != nil {
				return err
			}
		}
		if p.CustomTypeLabel != nil {
			if err := t.SetCustomTaskType(*p.CustomTypeLabel, actorID); err != nil {
				return err
			}
		}
		if p.RelatedEntityType != nil && p.RelatedEntityID != nil {
			if err := t.SetRelatedEntity(*p.RelatedEntityType, *p.RelatedEntityID, actorID); err != nil {
				return err
			}
		}
		if p.RequiredSOPIDs != nil {
			if err := t.ReplaceRequiredSOPs(p.RequiredSOPIDs, actorID); err != nil {
				return err
			}
		}
		if p.RequiredTrainingIDs != nil {
			if err := t.ReplaceRequiredTraining(p.RequiredTrainingIDs, actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("task updated", "task_id", taskID, "actor_id", actorID)
	return task, nil
}

// GetTask loads the fully hydrated aggregate for reading.
func (s *WorkflowService) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	st, err := s.taskRepo.GetStateByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if st.Dependencies, err = s.depRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, err
	}
	if st.History, err = s.historyRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, err
	}
	if st.Watchers, err = s.watcherRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, err
	}
	if st.TimeEntries, err = s.timeEntryRepo.ListByTaskID(ctx, taskID); err != nil {
		return nil, err
	}

	return domain.RehydrateTask(*st, s.clock), nil
}

// ListTasks retrieves tasks for a site with filters and pagination.
func (s *WorkflowService) ListTasks(ctx context.Context, filters repository.TaskListFilters) ([]*domain.Task, int, error) {
	states, total, err := s.taskRepo.List(ctx, filters, s.clock.Now())
	if err != nil {
		return nil, 0, err
	}

	tasks := make([]*domain.Task, 0, len(states))
	for _, st := range states {
		tasks = append(tasks, domain.RehydrateTask(*st, s.clock))
	}
	return tasks, total, nil
}

// FindOverdueTasks reports the non-terminal tasks in a site past their due
// date. Report-only: no transition is performed.
func (s *WorkflowService) FindOverdueTasks(ctx context.Context, siteID string) ([]*domain.Task, error) {
	states, err := s.taskRepo.FindOverdue(ctx, siteID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(states))
	for _, st := range states {
		tasks = append(tasks, domain.RehydrateTask(*st, s.clock))
	}
	return tasks, nil
}
