package domain

import "errors"

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound           = errors.New("task not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrBlockingReasonSet      = errors.New("blocking reason must be cleared before start")
	ErrTaskNotReady           = errors.New("task is not ready to start")
	ErrConcurrentModification = errors.New("task modified concurrently")

	// Dependency errors
	ErrSelfDependency        = errors.New("task cannot depend on itself")
	ErrDependencyTaskMissing = errors.New("dependency task not supplied")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is inactive")
	ErrInvalidToken = errors.New("invalid authentication token")

	// Site errors
	ErrSiteNotFound = errors.New("site not found")

	// Time entry errors
	ErrTimeEntryNotFound = errors.New("time entry not found")

	// Validation errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("invalid task priority")
)
