package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantops/growtask/internal/domain"
)

// fixedClock is a controllable time source for deterministic tests.
type fixedClock struct {
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func validParams() domain.NewTaskParams {
	return domain.NewTaskParams{
		SiteID:     "site-1",
		CreatorID:  "user-1",
		AssignerID: "user-1",
		Title:      "Flush irrigation lines",
	}
}

func newTestTask(t *testing.T, clock domain.Clock) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(validParams(), clock)
	require.NoError(t, err)
	return task
}

func TestNewTask_Defaults(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
	assert.Equal(t, domain.TaskTypeGeneral, task.Type)
	assert.Equal(t, clock.Now(), task.CreatedAt)
	assert.Nil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.CancelledAt)
	assert.Nil(t, task.BlockingReason)

	history := task.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.TaskStatusPending, history[0].FromStatus)
	assert.Equal(t, domain.TaskStatusPending, history[0].ToStatus)
	assert.Equal(t, "user-1", history[0].ActorID)
	assert.True(t, history[0].IsCreationMarker())
}

func TestNewTask_TrimsTitle(t *testing.T) {
	p := validParams()
	p.Title = "  Flush irrigation lines  "

	task, err := domain.NewTask(p, newFixedClock())
	require.NoError(t, err)
	assert.Equal(t, "Flush irrigation lines", task.Title)
}

func TestNewTask_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.NewTaskParams)
	}{
		{"missing site", func(p *domain.NewTaskParams) { p.SiteID = "" }},
		{"missing creator", func(p *domain.NewTaskParams) { p.CreatorID = "" }},
		{"missing assigner", func(p *domain.NewTaskParams) { p.AssignerID = "" }},
		{"blank title", func(p *domain.NewTaskParams) { p.Title = "   " }},
		{"unknown priority", func(p *domain.NewTaskParams) { p.Priority = "urgent" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := domain.NewTask(p, newFixedClock())
			assert.Error(t, err)
		})
	}
}

func TestNewTask_DueDateBeforeCreationRejected(t *testing.T) {
	clock := newFixedClock()
	p := validParams()
	past := clock.Now().Add(-time.Hour)
	p.DueDate = &past

	_, err := domain.NewTask(p, clock)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewTask_CustomLabelDroppedForNonCustomType(t *testing.T) {
	p := validParams()
	p.Type = domain.TaskTypeWatering
	p.CustomTypeLabel = "ignored"

	task, err := domain.NewTask(p, newFixedClock())
	require.NoError(t, err)
	assert.Empty(t, task.CustomTypeLabel)
}

func TestStart(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)
	clock.Advance(time.Minute)

	require.NoError(t, task.Start("user-2"))
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	require.NotNil(t, task.StartedAt)
	assert.Equal(t, clock.Now(), *task.StartedAt)
	assert.Len(t, task.History(), 2)
}

func TestStart_Idempotent(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)
	require.NoError(t, task.Start("user-2"))

	startedAt := *task.StartedAt
	clock.Advance(time.Hour)

	require.NoError(t, task.Start("user-2"))
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	assert.Equal(t, startedAt, *task.StartedAt)
	assert.Len(t, task.History(), 2)
}

func TestStart_TerminalStatusRejected(t *testing.T) {
	clock := newFixedClock()

	completed := newTestTask(t, clock)
	require.NoError(t, completed.Start("user-1"))
	require.NoError(t, completed.Complete("user-1"))
	assert.ErrorIs(t, completed.Start("user-1"), domain.ErrInvalidTransition)

	cancelled := newTestTask(t, clock)
	require.NoError(t, cancelled.Cancel("", "user-1"))
	assert.ErrorIs(t, cancelled.Start("user-1"), domain.ErrInvalidTransition)
}

func TestStart_RequiresClearedBlockingReason(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	require.NoError(t, task.Block("awaiting parts", "user-1"))
	err := task.Start("user-1")
	require.ErrorIs(t, err, domain.ErrBlockingReasonSet)

	require.NoError(t, task.Unblock("user-1"))
	require.NoError(t, task.Start("user-1"))
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
}

func TestStart_RequiresActor(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	assert.ErrorIs(t, task.Start("  "), domain.ErrInvalidArgument)
}

func TestBlock(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	require.NoError(t, task.Block("pump failure", "user-1"))
	assert.Equal(t, domain.TaskStatusBlocked, task.Status)
	require.NotNil(t, task.BlockingReason)
	assert.Equal(t, "pump failure", *task.BlockingReason)
	assert.Len(t, task.History(), 2)
}

func TestBlock_RequiresReason(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	assert.ErrorIs(t, task.Block("  ", "user-1"), domain.ErrInvalidArgument)
	assert.ErrorIs(t, task.Block("reason", ""), domain.ErrInvalidArgument)
}

func TestBlock_IdempotentWithIdenticalReason(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Block("pump failure", "user-1"))
	require.NoError(t, task.Block("pump failure", "user-1"))
	assert.Len(t, task.History(), 2)
}

func TestBlock_ReasonReplacedWithoutNewLedgerEntry(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Block("pump failure", "user-1"))
	require.NoError(t, task.Block("valve stuck", "user-1"))
	assert.Equal(t, "valve stuck", *task.BlockingReason)
	assert.Len(t, task.History(), 2)
}

func TestBlock_TerminalStatusRejected(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Start("user-1"))
	require.NoError(t, task.Complete("user-1"))
	assert.ErrorIs(t, task.Block("too late", "user-1"), domain.ErrInvalidTransition)
}

func TestUnblock_FromBlocked(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Block("pump failure", "user-1"))

	require.NoError(t, task.Unblock("user-2"))
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Nil(t, task.BlockingReason)

	history := task.History()
	require.Len(t, history, 3)
	assert.Equal(t, "Task unblocked", history[2].Reason)
}

func TestUnblock_WhenNotBlockedClearsReasonOnly(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	require.NoError(t, task.Unblock("user-1"))
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Nil(t, task.BlockingReason)
	assert.Len(t, task.History(), 1)
}

func TestComplete(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)
	require.NoError(t, task.Start("user-1"))
	clock.Advance(2 * time.Hour)

	require.NoError(t, task.Complete("user-1"))
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, clock.Now(), *task.CompletedAt)
	assert.Nil(t, task.CancelledAt)
}

func TestComplete_RequiresInProgress(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	assert.ErrorIs(t, task.Complete("user-1"), domain.ErrInvalidTransition)

	require.NoError(t, task.Block("pump failure", "user-1"))
	assert.ErrorIs(t, task.Complete("user-1"), domain.ErrInvalidTransition)
}

func TestComplete_Idempotent(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)
	require.NoError(t, task.Start("user-1"))
	require.NoError(t, task.Complete("user-1"))

	completedAt := *task.CompletedAt
	historyLen := len(task.History())
	clock.Advance(time.Hour)

	require.NoError(t, task.Complete("user-1"))
	assert.Equal(t, completedAt, *task.CompletedAt)
	assert.Len(t, task.History(), historyLen)
}

func TestCancel(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	require.NoError(t, task.Cancel("no longer needed", "user-1"))
	assert.Equal(t, domain.TaskStatusCancelled, task.Status)
	assert.Equal(t, "no longer needed", task.CancellationReason)
	require.NotNil(t, task.CancelledAt)
	assert.Nil(t, task.CompletedAt)
}

func TestCancel_DefaultReason(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Cancel("  ", "user-1"))
	assert.Equal(t, "Cancelled", task.CancellationReason)
}

func TestCancel_Idempotent(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)
	require.NoError(t, task.Cancel("duplicate plan", "user-1"))

	cancelledAt := *task.CancelledAt
	historyLen := len(task.History())
	clock.Advance(time.Hour)

	require.NoError(t, task.Cancel("again", "user-1"))
	assert.Equal(t, cancelledAt, *task.CancelledAt)
	assert.Equal(t, "duplicate plan", task.CancellationReason)
	assert.Len(t, task.History(), historyLen)
}

func TestCancel_CompletedTaskRejected(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Start("user-1"))
	require.NoError(t, task.Complete("user-1"))
	assert.ErrorIs(t, task.Cancel("too late", "user-1"), domain.ErrInvalidTransition)
}

func TestCancel_FromBlockedClearsReason(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	require.NoError(t, task.Block("pump failure", "user-1"))
	require.NoError(t, task.Cancel("abandoned", "user-1"))
	assert.Nil(t, task.BlockingReason)
}

func TestCanStart(t *testing.T) {
	clock := newFixedClock()
	notGated := domain.NotGated()
	satisfied := domain.DependenciesSatisfied()

	pending := newTestTask(t, clock)
	assert.True(t, pending.CanStart(notGated, satisfied))

	blocked := newTestTask(t, clock)
	require.NoError(t, blocked.Block("pump failure", "user-1"))
	assert.True(t, blocked.CanStart(notGated, satisfied))

	inProgress := newTestTask(t, clock)
	require.NoError(t, inProgress.Start("user-1"))
	assert.False(t, inProgress.CanStart(notGated, satisfied))

	gated := domain.Gated([]string{"sop-1"}, nil)
	assert.False(t, pending.CanStart(gated, satisfied))

	depsBlocked := domain.DependenciesBlocked([]string{"other"}, []string{"Task other must complete first"})
	assert.False(t, pending.CanStart(notGated, depsBlocked))
}

func TestAddStateHistory_Guard(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	// Duplicate from==to suppressed once the ledger is non-empty.
	require.NoError(t, task.AddStateHistory(domain.TaskStatusPending, domain.TaskStatusPending, "user-1", "noise"))
	assert.Len(t, task.History(), 1)

	// Real transitions always append.
	require.NoError(t, task.AddStateHistory(domain.TaskStatusPending, domain.TaskStatusInProgress, "user-1", ""))
	assert.Len(t, task.History(), 2)

	// Actor is mandatory.
	err := task.AddStateHistory(domain.TaskStatusInProgress, domain.TaskStatusBlocked, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRehydrate_PreservesHistoryOrder(t *testing.T) {
	clock := newFixedClock()
	original := newTestTask(t, clock)
	clock.Advance(time.Minute)
	require.NoError(t, original.Start("user-1"))
	clock.Advance(time.Minute)
	require.NoError(t, original.Block("pump failure", "user-1"))

	st := domain.TaskState{
		ID:             original.ID,
		SiteID:         original.SiteID,
		CreatorID:      original.CreatorID,
		CreatedAt:      original.CreatedAt,
		UpdatedAt:      original.UpdatedAt,
		Type:           original.Type,
		Title:          original.Title,
		AssignerID:     original.AssignerID,
		Status:         original.Status,
		Priority:       original.Priority,
		StartedAt:      original.StartedAt,
		BlockingReason: original.BlockingReason,
		History:        original.History(),
	}
	restored := domain.RehydrateTask(st, clock)

	history := restored.History()
	require.Len(t, history, 3)
	assert.True(t, history[0].IsCreationMarker())
	assert.Equal(t, domain.TaskStatusInProgress, history[1].ToStatus)
	assert.Equal(t, domain.TaskStatusBlocked, history[2].ToStatus)
	assert.Equal(t, domain.TaskStatusBlocked, restored.Status)
}

func TestUpdatePriority(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	require.NoError(t, task.UpdatePriority(domain.TaskPriorityCritical, "user-1"))
	assert.Equal(t, domain.TaskPriorityCritical, task.Priority)

	assert.ErrorIs(t, task.UpdatePriority(domain.TaskPriorityUndefined, "user-1"), domain.ErrInvalidPriority)
	assert.ErrorIs(t, task.UpdatePriority("urgent", "user-1"), domain.ErrInvalidPriority)
}

func TestUpdateDueDate(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	due := clock.Now().Add(48 * time.Hour)
	require.NoError(t, task.UpdateDueDate(&due, "user-1"))
	assert.Equal(t, due, *task.DueDate)

	past := task.CreatedAt.Add(-time.Hour)
	assert.ErrorIs(t, task.UpdateDueDate(&past, "user-1"), domain.ErrInvalidArgument)

	require.NoError(t, task.UpdateDueDate(nil, "user-1"))
	assert.Nil(t, task.DueDate)
}

func TestAssign(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	assignee := "user-7"
	require.NoError(t, task.Assign(&assignee, "", "user-1"))
	assert.Equal(t, "user-7", *task.AssigneeID)

	require.NoError(t, task.Assign(nil, "grower", "user-1"))
	assert.Equal(t, "grower", task.AssigneeRole)

	assert.ErrorIs(t, task.Assign(nil, "", "user-1"), domain.ErrInvalidArgument)
	assert.ErrorIs(t, task.Assign(&assignee, "", ""), domain.ErrInvalidArgument)
}

func TestSetCustomTaskType(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	require.NoError(t, task.SetCustomTaskType("Trellis netting", "user-1"))
	assert.Equal(t, domain.TaskTypeCustom, task.Type)
	assert.Equal(t, "Trellis netting", task.CustomTypeLabel)

	assert.ErrorIs(t, task.SetCustomTaskType("  ", "user-1"), domain.ErrInvalidArgument)
}

func TestSetRelatedEntity(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	require.NoError(t, task.SetRelatedEntity("batch", "batch-42", "user-1"))
	assert.Equal(t, "batch", task.RelatedEntityType)
	assert.Equal(t, "batch-42", task.RelatedEntityID)

	assert.ErrorIs(t, task.SetRelatedEntity("", "batch-42", "user-1"), domain.ErrInvalidArgument)
}

func TestReplaceRequiredSOPs_DeduplicatesAndSorts(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	require.NoError(t, task.ReplaceRequiredSOPs([]string{"sop-b", " sop-a ", "sop-b", "  "}, "user-1"))
	assert.Equal(t, []string{"sop-a", "sop-b"}, task.RequiredSOPIDs())

	require.NoError(t, task.ReplaceRequiredSOPs(nil, "user-1"))
	assert.Empty(t, task.RequiredSOPIDs())
}

func TestIsOverdue(t *testing.T) {
	clock := newFixedClock()
	p := validParams()
	due := clock.Now().Add(time.Hour)
	p.DueDate = &due

	task, err := domain.NewTask(p, clock)
	require.NoError(t, err)
	assert.False(t, task.IsOverdue())

	clock.Advance(2 * time.Hour)
	assert.True(t, task.IsOverdue())

	// Terminal tasks are never overdue.
	require.NoError(t, task.Cancel("", "user-1"))
	assert.False(t, task.IsOverdue())
}

func TestTimeToComplete(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	_, ok := task.TimeToComplete()
	assert.False(t, ok)

	require.NoError(t, task.Start("user-1"))
	clock.Advance(90 * time.Minute)
	require.NoError(t, task.Complete("user-1"))

	d, ok := task.TimeToComplete()
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, d)
}

func TestWatchers_SetSemantics(t *testing.T) {
	task := newTestTask(t, newFixedClock())

	w1, err := task.AddWatcher("user-5")
	require.NoError(t, err)

	w2, err := task.AddWatcher("user-5")
	require.NoError(t, err)
	assert.Equal(t, w1.ID, w2.ID)
	assert.Len(t, task.Watchers(), 1)

	task.RemoveWatcher("user-5")
	assert.Empty(t, task.Watchers())

	// Removing an absent watcher is a silent no-op.
	task.RemoveWatcher("user-5")
	assert.Empty(t, task.Watchers())
}

func TestTimeEntries(t *testing.T) {
	clock := newFixedClock()
	task := newTestTask(t, clock)

	entry, err := task.StartTimeEntry("user-5", nil, "morning round")
	require.NoError(t, err)
	assert.True(t, entry.IsOpen())
	assert.Equal(t, clock.Now(), entry.StartedAt)

	// Multiple concurrently open entries are permitted.
	_, err = task.StartTimeEntry("user-5", nil, "")
	require.NoError(t, err)
	assert.Len(t, task.TimeEntries(), 2)

	// End before start is rejected; duration is never negative.
	err = entry.Complete(entry.StartedAt.Add(-time.Minute), "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.True(t, entry.IsOpen())

	require.NoError(t, entry.Complete(entry.StartedAt.Add(45*time.Minute), "done"))
	d, ok := entry.Duration()
	require.True(t, ok)
	assert.Equal(t, 45*time.Minute, d)
	assert.Equal(t, "done", entry.Notes)
}

func TestCollectionAccessorsReturnCopies(t *testing.T) {
	task := newTestTask(t, newFixedClock())
	_, err := task.AddWatcher("user-5")
	require.NoError(t, err)

	watchers := task.Watchers()
	watchers[0] = nil
	require.NotNil(t, task.Watchers()[0])

	history := task.History()
	history[0] = nil
	require.NotNil(t, task.History()[0])
}
