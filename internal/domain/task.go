package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is the aggregate root for a cultivation work item. It owns its
// dependency edges, state history ledger, watchers, time entries, and
// compliance requirement sets. All state changes go through its methods;
// the owned collections are only reachable through copying accessors.
//
// A Task is not safe for concurrent mutation. Callers follow the usual
// load-mutate-save pattern, one aggregate instance per unit of work.
// Cross-process conflicts are the persistence layer's concern.
type Task struct {
	ID        string
	SiteID    string
	CreatorID string
	CreatedAt time.Time
	UpdatedAt time.Time

	Type            TaskType
	CustomTypeLabel string
	Title           string
	Description     string

	AssigneeID   *string
	AssigneeRole string
	AssignerID   string

	Status             TaskStatus
	Priority           TaskPriority
	DueDate            *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	BlockingReason     *string

	RelatedEntityType string
	RelatedEntityID   string

	requiredSOPIDs      []string
	requiredTrainingIDs []string
	dependencies        []*TaskDependency
	history             []*TaskStateHistory
	watchers            []*TaskWatcher
	timeEntries         []*TaskTimeEntry

	clock Clock
}

// NewTaskParams carries the inputs for creating a task.
type NewTaskParams struct {
	SiteID          string
	CreatorID       string
	AssignerID      string
	Title           string
	Description     string
	Type            TaskType
	CustomTypeLabel string
	Priority        TaskPriority
	DueDate         *time.Time
	AssigneeID      *string
	AssigneeRole    string

	RelatedEntityType string
	RelatedEntityID   string

	RequiredSOPIDs      []string
	RequiredTrainingIDs []string
}

// NewTask creates a task in PENDING status and records the creation marker
// as the first history entry.
func NewTask(p NewTaskParams, clock Clock) (*Task, error) {
	if p.SiteID == "" {
		return nil, fmt.Errorf("%w: site id is required", ErrInvalidArgument)
	}
	if p.CreatorID == "" {
		return nil, fmt.Errorf("%w: creator id is required", ErrInvalidArgument)
	}
	if p.AssignerID == "" {
		return nil, fmt.Errorf("%w: assigner id is required", ErrInvalidArgument)
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}

	priority := p.Priority
	if priority == TaskPriorityUndefined {
		priority = TaskPriorityMedium
	}
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, p.Priority)
	}

	taskType := p.Type.Normalize()
	customLabel := ""
	if taskType == TaskTypeCustom {
		customLabel = strings.TrimSpace(p.CustomTypeLabel)
	}

	now := clock.Now()
	if p.DueDate != nil && p.DueDate.Before(now) {
		return nil, fmt.Errorf("%w: due date cannot precede creation time", ErrInvalidArgument)
	}

	t := &Task{
		ID:        uuid.NewString(),
		SiteID:    p.SiteID,
		CreatorID: p.CreatorID,
		CreatedAt: now,
		UpdatedAt: now,

		Type:            taskType,
		CustomTypeLabel: customLabel,
		Title:           title,
		Description:     p.Description,

		AssigneeID:   p.AssigneeID,
		AssigneeRole: p.AssigneeRole,
		AssignerID:   p.AssignerID,

		Status:   TaskStatusPending,
		Priority: priority,
		DueDate:  p.DueDate,

		RelatedEntityType: p.RelatedEntityType,
		RelatedEntityID:   p.RelatedEntityID,

		requiredSOPIDs:      normalizeIDSet(p.RequiredSOPIDs),
		requiredTrainingIDs: normalizeIDSet(p.RequiredTrainingIDs),

		clock: clock,
	}

	if err := t.AddStateHistory(TaskStatusPending, TaskStatusPending, p.CreatorID, "Task created"); err != nil {
		return nil, err
	}

	return t, nil
}

// TaskState is a persisted snapshot of a task and its owned collections,
// used to rehydrate the aggregate from storage.
type TaskState struct {
	ID        string
	SiteID    string
	CreatorID string
	CreatedAt time.Time
	UpdatedAt time.Time

	Type            TaskType
	CustomTypeLabel string
	Title           string
	Description     string

	AssigneeID   *string
	AssigneeRole string
	AssignerID   string

	Status             TaskStatus
	Priority           TaskPriority
	DueDate            *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	BlockingReason     *string

	RelatedEntityType string
	RelatedEntityID   string

	RequiredSOPIDs      []string
	RequiredTrainingIDs []string
	Dependencies        []*TaskDependency
	History             []*TaskStateHistory
	Watchers            []*TaskWatcher
	TimeEntries         []*TaskTimeEntry
}

// RehydrateTask reconstructs a task from a persisted snapshot without
// producing history. History order is preserved as given; storage loads
// it chronologically.
func RehydrateTask(st TaskState, clock Clock) *Task {
	return &Task{
		ID:        st.ID,
		SiteID:    st.SiteID,
		CreatorID: st.CreatorID,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,

		Type:            st.Type.Normalize(),
		CustomTypeLabel: st.CustomTypeLabel,
		Title:           st.Title,
		Description:     st.Description,

		AssigneeID:   st.AssigneeID,
		AssigneeRole: st.AssigneeRole,
		AssignerID:   st.AssignerID,

		Status:             st.Status,
		Priority:           st.Priority,
		DueDate:            st.DueDate,
		StartedAt:          st.StartedAt,
		CompletedAt:        st.CompletedAt,
		CancelledAt:        st.CancelledAt,
		CancellationReason: st.CancellationReason,
		BlockingReason:     st.BlockingReason,

		RelatedEntityType: st.RelatedEntityType,
		RelatedEntityID:   st.RelatedEntityID,

		requiredSOPIDs:      normalizeIDSet(st.RequiredSOPIDs),
		requiredTrainingIDs: normalizeIDSet(st.RequiredTrainingIDs),
		dependencies:        slices.Clone(st.Dependencies),
		history:             slices.Clone(st.History),
		watchers:            slices.Clone(st.Watchers),
		timeEntries:         slices.Clone(st.TimeEntries),

		clock: clock,
	}
}

// Start moves the task to IN_PROGRESS. Starting is refused while a blocking
// reason is set (Unblock first) and from terminal statuses. Calling Start
// on a task already in progress is a no-op.
func (t *Task) Start(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot start task in %s status", ErrInvalidTransition, t.Status)
	}
	if t.BlockingReason != nil {
		return fmt.Errorf("%w: %q", ErrBlockingReasonSet, *t.BlockingReason)
	}
	if t.Status == TaskStatusInProgress {
		return nil
	}

	from := t.Status
	now := t.clock.Now()
	t.Status = TaskStatusInProgress
	if t.StartedAt == nil {
		t.StartedAt = &now
	}
	t.UpdatedAt = now

	return t.AddStateHistory(from, TaskStatusInProgress, actorID, "Task started")
}

// Block moves the task to BLOCKED with a mandatory reason. Blocking an
// already blocked task with the identical reason is a no-op; a different
// reason replaces the stored one without a new ledger entry.
func (t *Task) Block(reason, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: blocking reason is required", ErrInvalidArgument)
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot block task in %s status", ErrInvalidTransition, t.Status)
	}
	if t.Status == TaskStatusBlocked && t.BlockingReason != nil && *t.BlockingReason == reason {
		return nil
	}

	from := t.Status
	t.Status = TaskStatusBlocked
	t.BlockingReason = &reason
	t.UpdatedAt = t.clock.Now()

	return t.AddStateHistory(from, TaskStatusBlocked, actorID, reason)
}

// Unblock clears the blocking reason. A BLOCKED task returns to PENDING
// with a ledger entry; on any other status only the reason is cleared,
// with no status change and no history.
func (t *Task) Unblock(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}

	if t.Status != TaskStatusBlocked {
		t.BlockingReason = nil
		return nil
	}

	t.Status = TaskStatusPending
	t.BlockingReason = nil
	t.UpdatedAt = t.clock.Now()

	return t.AddStateHistory(TaskStatusBlocked, TaskStatusPending, actorID, "Task unblocked")
}

// Complete moves an IN_PROGRESS task to COMPLETED and stamps CompletedAt.
// Completing an already completed task is a no-op. Pending and blocked
// tasks must be started first.
func (t *Task) Complete(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	if t.Status == TaskStatusCompleted {
		return nil
	}
	if t.Status != TaskStatusInProgress {
		return fmt.Errorf("%w: cannot complete task in %s status", ErrInvalidTransition, t.Status)
	}

	now := t.clock.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now

	return t.AddStateHistory(TaskStatusInProgress, TaskStatusCompleted, actorID, "Task completed")
}

// Cancel moves the task to CANCELLED from any non-completed status and
// stamps CancelledAt. A blank reason defaults to "Cancelled". Cancelling
// an already cancelled task is a no-op.
func (t *Task) Cancel(reason, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	if t.Status == TaskStatusCompleted {
		return fmt.Errorf("%w: cannot cancel a completed task", ErrInvalidTransition)
	}
	if t.Status == TaskStatusCancelled {
		return nil
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled"
	}

	from := t.Status
	now := t.clock.Now()
	t.Status = TaskStatusCancelled
	t.CancellationReason = reason
	t.CancelledAt = &now
	t.BlockingReason = nil
	t.UpdatedAt = now

	return t.AddStateHistory(from, TaskStatusCancelled, actorID, reason)
}

// CanStart is a pure decision: the task is ready to start when it sits in
// PENDING or BLOCKED and both evaluation results are clear. Start itself
// re-checks only the blocking-reason invariant; gating and dependency
// evaluation need externally loaded data the aggregate does not own.
func (t *Task) CanStart(gating GatingResult, deps DependencyResult) bool {
	if t.Status != TaskStatusPending && t.Status != TaskStatusBlocked {
		return false
	}
	return !gating.Gated && deps.Satisfied
}

// CheckGating compares the task's requirement sets against the supplied
// completed sets. Nil completed sets are treated as empty.
func (t *Task) CheckGating(completedSOPIDs, completedTrainingIDs []string) GatingResult {
	missingSOPs := missingFrom(t.requiredSOPIDs, completedSOPIDs)
	missingTraining := missingFrom(t.requiredTrainingIDs, completedTrainingIDs)
	if len(missingSOPs) == 0 && len(missingTraining) == 0 {
		return NotGated()
	}
	return Gated(missingSOPs, missingTraining)
}

// CheckDependencies evaluates the task's dependency edges against the
// supplied candidate tasks. A task with no edges is trivially satisfied.
// An edge whose target is absent from candidates is a data-integrity
// fault and aborts evaluation with an error.
func (t *Task) CheckDependencies(candidates []*Task) (DependencyResult, error) {
	if len(t.dependencies) == 0 {
		return DependenciesSatisfied(), nil
	}

	byID := make(map[string]*Task, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	var blockingIDs []string
	var reasons []string
	for _, dep := range t.dependencies {
		dependsOn, ok := byID[dep.DependsOnTaskID]
		if !ok {
			return DependencyResult{}, fmt.Errorf("%w: task %s", ErrDependencyTaskMissing, dep.DependsOnTaskID)
		}
		if !dep.satisfiedBy(dependsOn) {
			blockingIDs = append(blockingIDs, dependsOn.ID)
			reasons = append(reasons, dep.reasonFor(dependsOn))
		}
	}

	if len(blockingIDs) == 0 {
		return DependenciesSatisfied(), nil
	}
	return DependenciesBlocked(blockingIDs, reasons), nil
}

// AddDependency records a new dependency edge. Edges have set semantics
// per depended-on task: adding a second edge to the same target returns
// the existing one.
func (t *Task) AddDependency(dependsOnTaskID string, depType DependencyType, blocking bool, minimumLag time.Duration) (*TaskDependency, error) {
	for _, dep := range t.dependencies {
		if dep.DependsOnTaskID == dependsOnTaskID {
			return dep, nil
		}
	}

	dep, err := NewTaskDependency(t.ID, dependsOnTaskID, depType, blocking, minimumLag, t.clock.Now())
	if err != nil {
		return nil, err
	}
	t.dependencies = append(t.dependencies, dep)
	t.UpdatedAt = t.clock.Now()
	return dep, nil
}

// AddStateHistory appends a transition record to the audit ledger. A
// record whose from and to status match is suppressed once the ledger is
// non-empty; the very first entry is always written because it is the
// creation marker. The actor is mandatory so every entry is attributable.
func (t *Task) AddStateHistory(from, to TaskStatus, actorID, reason string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: history actor id is required", ErrInvalidArgument)
	}
	if len(t.history) > 0 && from == to {
		return nil
	}

	t.history = append(t.history, &TaskStateHistory{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  t.clock.Now(),
	})
	return nil
}

// Assign sets the task's assignee and/or role. At least one of the two
// must be provided.
func (t *Task) Assign(assigneeID *string, assigneeRole, assignerID string) error {
	if strings.TrimSpace(assignerID) == "" {
		return fmt.Errorf("%w: assigner id is required", ErrInvalidArgument)
	}
	if assigneeID != nil && strings.TrimSpace(*assigneeID) == "" {
		return fmt.Errorf("%w: assignee id cannot be blank", ErrInvalidArgument)
	}
	if assigneeID == nil && strings.TrimSpace(assigneeRole) == "" {
		return fmt.Errorf("%w: assignee id or role is required", ErrInvalidArgument)
	}

	t.AssigneeID = assigneeID
	t.AssigneeRole = assigneeRole
	t.AssignerID = assignerID
	t.UpdatedAt = t.clock.Now()
	return nil
}

// UpdatePriority changes the task priority. The undefined sentinel is
// rejected.
func (t *Task) UpdatePriority(priority TaskPriority, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	if !priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}

	t.Priority = priority
	t.UpdatedAt = t.clock.Now()
	return nil
}

// UpdateDueDate changes or clears the due date. A due date earlier than
// the creation time is rejected.
func (t *Task) UpdateDueDate(dueDate *time.Time, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	if dueDate != nil && dueDate.Before(t.CreatedAt) {
		return fmt.Errorf("%w: due date cannot precede creation time", ErrInvalidArgument)
	}

	t.DueDate = dueDate
	t.UpdatedAt = t.clock.Now()
	return nil
}

// UpdateDescription replaces the task description.
func (t *Task) UpdateDescription(description, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}

	t.Description = description
	t.UpdatedAt = t.clock.Now()
	return nil
}

// SetRelatedEntity links the task to an external domain object.
func (t *Task) SetRelatedEntity(entityType, entityID, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	if entityType == "" || entityID == "" {
		return fmt.Errorf("%w: related entity type and id are required", ErrInvalidArgument)
	}

	t.RelatedEntityType = entityType
	t.RelatedEntityID = entityID
	t.UpdatedAt = t.clock.Now()
	return nil
}

// SetCustomTaskType switches the task to the custom type with a label.
func (t *Task) SetCustomTaskType(label, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w: custom type label is required", ErrInvalidArgument)
	}

	t.Type = TaskTypeCustom
	t.CustomTypeLabel = label
	t.UpdatedAt = t.clock.Now()
	return nil
}

// ReplaceRequiredSOPs replaces the required SOP set. Blank ids are dropped
// and duplicates collapse.
func (t *Task) ReplaceRequiredSOPs(sopIDs []string, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}

	t.requiredSOPIDs = normalizeIDSet(sopIDs)
	t.UpdatedAt = t.clock.Now()
	return nil
}

// ReplaceRequiredTraining replaces the required training-module set.
func (t *Task) ReplaceRequiredTraining(trainingIDs []string, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	}

	t.requiredTrainingIDs = normalizeIDSet(trainingIDs)
	t.UpdatedAt = t.clock.Now()
	return nil
}

// AddWatcher subscribes a user to the task. Watchers have set semantics:
// adding an existing watcher returns the existing entry.
func (t *Task) AddWatcher(userID string) (*TaskWatcher, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	for _, w := range t.watchers {
		if w.UserID == userID {
			return w, nil
		}
	}

	w := &TaskWatcher{
		ID:        uuid.NewString(),
		TaskID:    t.ID,
		UserID:    userID,
		CreatedAt: t.clock.Now(),
	}
	t.watchers = append(t.watchers, w)
	t.UpdatedAt = t.clock.Now()
	return w, nil
}

// RemoveWatcher unsubscribes a user. Removing an absent watcher is a
// silent no-op.
func (t *Task) RemoveWatcher(userID string) {
	for i, w := range t.watchers {
		if w.UserID == userID {
			t.watchers = append(t.watchers[:i], t.watchers[i+1:]...)
			t.UpdatedAt = t.clock.Now()
			return
		}
	}
}

// StartTimeEntry opens a time entry for a user. When startedAt is nil the
// current time is used. Nothing prevents multiple concurrently open
// entries; the engine does not enforce one active timer per user.
func (t *Task) StartTimeEntry(userID string, startedAt *time.Time, notes string) (*TaskTimeEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}

	start := t.clock.Now()
	if startedAt != nil {
		start = *startedAt
	}

	entry := &TaskTimeEntry{
		ID:        uuid.NewString(),
		TaskID:    t.ID,
		UserID:    userID,
		StartedAt: start,
		Notes:     notes,
	}
	t.timeEntries = append(t.timeEntries, entry)
	t.UpdatedAt = t.clock.Now()
	return entry, nil
}

// IsOverdue reports whether a non-terminal task has passed its due date.
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil || t.Status.IsTerminal() {
		return false
	}
	return t.clock.Now().After(*t.DueDate)
}

// TimeToComplete returns the interval between start and completion. The
// second return is false when either timestamp is absent; that is a valid
// outcome, not an error.
func (t *Task) TimeToComplete() (time.Duration, bool) {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0, false
	}
	return t.CompletedAt.Sub(*t.StartedAt), true
}

// Dependencies returns a copy of the task's dependency edges.
func (t *Task) Dependencies() []*TaskDependency {
	return slices.Clone(t.dependencies)
}

// History returns a copy of the audit ledger in chronological order.
func (t *Task) History() []*TaskStateHistory {
	return slices.Clone(t.history)
}

// Watchers returns a copy of the watcher list.
func (t *Task) Watchers() []*TaskWatcher {
	return slices.Clone(t.watchers)
}

// TimeEntries returns a copy of the time entry list.
func (t *Task) TimeEntries() []*TaskTimeEntry {
	return slices.Clone(t.timeEntries)
}

// RequiredSOPIDs returns a copy of the required SOP set, sorted.
func (t *Task) RequiredSOPIDs() []string {
	return slices.Clone(t.requiredSOPIDs)
}

// RequiredTrainingIDs returns a copy of the required training set, sorted.
func (t *Task) RequiredTrainingIDs() []string {
	return slices.Clone(t.requiredTrainingIDs)
}

// normalizeIDSet trims, deduplicates, and sorts a list of ids, dropping
// blanks.
func normalizeIDSet(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
