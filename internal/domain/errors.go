package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInsufficientCredits is returned when a debit exceeds the user's
	// balance. Tasks failing with this error are never retried.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrSubscriptionRequired is returned when a monthly-billed tool is
	// invoked without an active subscription. Never retried.
	ErrSubscriptionRequired = errors.New("subscription required")

	// ErrToolNotFound is returned when a tool cost config lookup fails
	// in a context where the tool must exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrUserNotFound is returned when a credit or subscription operation
	// references an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrInstanceNotFound is returned when a messaging instance lookup
	// by ID fails.
	ErrInstanceNotFound = errors.New("messaging instance not found")

	// ErrTaskNotFound is returned when a task status lookup fails.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTaskType is returned when an enqueue request names a task
	// type outside the closed set.
	ErrInvalidTaskType = errors.New("invalid task type")

	// ErrInvalidPriority is returned when a priority override is not one
	// of critical, high, normal, low.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrSagaStageFailed marks a content pipeline stage failure. Stage
	// failures are terminal: completed stages have already billed, and a
	// retry would run and charge them again. Callers re-enqueue a fresh
	// pipeline instead.
	ErrSagaStageFailed = errors.New("pipeline stage failed")
)

// SagaStageFailure wraps a pipeline stage error so the executor recognizes
// it as terminal while errors.Is still reaches the underlying cause.
func SagaStageFailure(err error) error {
	if err == nil {
		return nil
	}
	return &sagaStageError{cause: err}
}

type sagaStageError struct {
	cause error
}

func (e *sagaStageError) Error() string { return e.cause.Error() }

func (e *sagaStageError) Unwrap() error { return e.cause }

func (e *sagaStageError) Is(target error) bool { return target == ErrSagaStageFailed }

// IsBillingFailure reports whether err is a terminal billing error.
// Billing failures fail the task immediately and are never retried:
// retrying cannot conjure credits or a subscription.
func IsBillingFailure(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) || errors.Is(err, ErrSubscriptionRequired)
}
