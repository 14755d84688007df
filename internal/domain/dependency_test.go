package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantops/growtask/internal/domain"
)

// candidateTask builds a depended-on task in a given status directly from a
// snapshot, so evaluation tests control lifecycle fields precisely.
func candidateTask(id, title string, status domain.TaskStatus, startedAt *time.Time) *domain.Task {
	clock := newFixedClock()
	return domain.RehydrateTask(domain.TaskState{
		ID:         id,
		SiteID:     "site-1",
		CreatorID:  "user-1",
		AssignerID: "user-1",
		Title:      title,
		Status:     status,
		Priority:   domain.TaskPriorityMedium,
		CreatedAt:  clock.Now(),
		UpdatedAt:  clock.Now(),
		StartedAt:  startedAt,
	}, clock)
}

func TestCheckDependencies_NoEdgesAlwaysSatisfied(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	res, err := task.CheckDependencies(nil)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	res, err = task.CheckDependencies([]*domain.Task{
		candidateTask("other", "Other", domain.TaskStatusPending, nil),
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestCheckDependencies_FinishToStart(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddDependency("dep-1", domain.DependencyFinishToStart, true, 0)
	require.NoError(t, err)

	for _, status := range []domain.TaskStatus{
		domain.TaskStatusPending,
		domain.TaskStatusInProgress,
		domain.TaskStatusBlocked,
		domain.TaskStatusCancelled,
	} {
		res, err := task.CheckDependencies([]*domain.Task{
			candidateTask("dep-1", "Prune row 3", status, nil),
		})
		require.NoError(t, err)
		assert.False(t, res.Satisfied, "status %s", status)
		assert.Equal(t, []string{"dep-1"}, res.BlockingTaskIDs)
		assert.Equal(t, []string{"Task Prune row 3 must complete first"}, res.Reasons)
	}

	res, err := task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "Prune row 3", domain.TaskStatusCompleted, nil),
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestCheckDependencies_StartToStart(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddDependency("dep-1", domain.DependencyStartToStart, true, 0)
	require.NoError(t, err)

	// Not started yet.
	res, err := task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "Mix nutrients", domain.TaskStatusPending, nil),
	})
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	assert.Equal(t, []string{"Task Mix nutrients must start before this task"}, res.Reasons)

	// StartedAt set satisfies even if the task got blocked afterwards.
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err = task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "Mix nutrients", domain.TaskStatusBlocked, &started),
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	// In-progress status alone satisfies as well.
	res, err = task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "Mix nutrients", domain.TaskStatusInProgress, nil),
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestCheckDependencies_FinishToFinish(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddDependency("dep-1", domain.DependencyFinishToFinish, true, 0)
	require.NoError(t, err)

	res, err := task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "Dry room prep", domain.TaskStatusInProgress, nil),
	})
	require.NoError(t, err)
	assert.False(t, res.Satisfied)

	res, err = task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "Dry room prep", domain.TaskStatusCompleted, nil),
	})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestCheckDependencies_MultipleEdgesCollectAllBlockers(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddDependency("dep-1", domain.DependencyFinishToStart, true, 0)
	require.NoError(t, err)
	_, err = task.AddDependency("dep-2", domain.DependencyStartToStart, true, 0)
	require.NoError(t, err)
	_, err = task.AddDependency("dep-3", domain.DependencyFinishToStart, true, 0)
	require.NoError(t, err)

	res, err := task.CheckDependencies([]*domain.Task{
		candidateTask("dep-1", "A", domain.TaskStatusInProgress, nil),
		candidateTask("dep-2", "B", domain.TaskStatusPending, nil),
		candidateTask("dep-3", "C", domain.TaskStatusCompleted, nil),
	})
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	assert.Equal(t, []string{"dep-1", "dep-2"}, res.BlockingTaskIDs)
	assert.Len(t, res.Reasons, 2)
}

func TestCheckDependencies_MissingCandidateIsAFault(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddDependency("dep-1", domain.DependencyFinishToStart, true, 0)
	require.NoError(t, err)

	_, err = task.CheckDependencies(nil)
	require.ErrorIs(t, err, domain.ErrDependencyTaskMissing)

	_, err = task.CheckDependencies([]*domain.Task{
		candidateTask("unrelated", "X", domain.TaskStatusCompleted, nil),
	})
	require.ErrorIs(t, err, domain.ErrDependencyTaskMissing)
}

func TestAddDependency_SetSemantics(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	first, err := task.AddDependency("dep-1", domain.DependencyFinishToStart, true, 0)
	require.NoError(t, err)

	second, err := task.AddDependency("dep-1", domain.DependencyStartToStart, false, time.Hour)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, task.Dependencies(), 1)
}

func TestAddDependency_SelfRejected(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddDependency(task.ID, domain.DependencyFinishToStart, true, 0)
	require.ErrorIs(t, err, domain.ErrSelfDependency)
}

func TestNewTaskDependency(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	_, err := domain.NewTaskDependency("t1", "t2", "NOT_A_TYPE", true, -time.Minute, now)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	dep, err := domain.NewTaskDependency("t1", "t2", "NOT_A_TYPE", true, 0, now)
	require.NoError(t, err)
	assert.Equal(t, domain.DependencyFinishToStart, dep.Type)

	_, err = domain.NewTaskDependency("t1", "", domain.DependencyFinishToStart, true, 0, now)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDependencyTypeNormalize(t *testing.T) {
	assert.Equal(t, domain.DependencyStartToStart, domain.DependencyStartToStart.Normalize())
	assert.Equal(t, domain.DependencyFinishToStart, domain.DependencyType("").Normalize())
	assert.Equal(t, domain.DependencyFinishToStart, domain.DependencyType("SOMEDAY").Normalize())
}
