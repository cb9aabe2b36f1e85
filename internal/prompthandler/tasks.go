package prompthandler

import (
	"context"

	"mcpflow/internal/api"
)

// TaskSnapshot is the wire shape returned by tasks/get: the task's
// status plus its full variables map, returned verbatim rather than
// filtered (§9 decision: clients are trusted with the whole
// namespace, including the reserved _workflow.* keys, since they are
// the only audience for this endpoint).
type TaskSnapshot struct {
	TaskID    string               `json:"task_id"`
	Status    api.TaskStatus       `json:"status"`
	Variables map[string]api.Value `json:"variables"`
}

// GetTask returns the current status and variables for a task, subject
// to an ownership check (§6: "returns status and variables (subject to
// ownership check)") — a caller that is not the task's owner gets
// FORBIDDEN rather than a snapshot, so task existence is never leaked to
// the wrong identity (§7, testable property 4, scenario S5).
func (h *Handler) GetTask(ctx context.Context, taskID, ownerID string) (*TaskSnapshot, error) {
	task, err := h.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, api.NewForbiddenError("task")
	}
	return &TaskSnapshot{TaskID: task.TaskID, Status: task.Status, Variables: task.Variables}, nil
}

// taskResultKey mirrors taskstore's reserved key for a completed task's
// final result; duplicated here rather than exported, since only this
// package's client-facing GetResult needs to read it back.
const taskResultKey = "_workflow.task_result"

// GetResult returns the task's final result if it has completed, and an
// error if it is still working, cancelled, or failed without one.
func (h *Handler) GetResult(ctx context.Context, taskID, ownerID string) (api.Value, error) {
	task, err := h.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		return nil, api.NewForbiddenError("task")
	}
	if task.Status != api.TaskCompleted {
		return nil, api.NewValidationError("task %s has not completed (status: %s)", taskID, task.Status)
	}
	return task.Variables[taskResultKey], nil
}

// CancelTask implements the single tasks/cancel endpoint (§4.6, §6): when
// result is nil the call cancels the task (Working -> Cancelled); when
// result is non-nil it is semantically a client-triggered completion
// (Working -> Completed) storing result as the task's final result. Both
// forms are idempotent against the underlying store's terminal-transition
// semantics, and cancelling/completing a task already in its target
// terminal state is a no-op rather than an error (testable property 6).
func (h *Handler) CancelTask(ctx context.Context, taskID, ownerID string, result api.Value) error {
	if result != nil {
		return h.store.CompleteWithResult(ctx, taskID, ownerID, api.TaskCompleted, result)
	}
	return h.store.Cancel(ctx, taskID, ownerID)
}
