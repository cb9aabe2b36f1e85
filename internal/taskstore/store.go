// Package taskstore implements the Task Store capability surface (§4.2):
// the engine's only way to read and mutate task state. Two conforming
// implementations ship: Memory (single-process) and Redis (durable,
// shared across host instances).
package taskstore

import (
	"context"

	"mcpflow/internal/api"
)

// Store is the capability surface the execution engine, the prompt
// handler, and the reconnection recorder depend on. set_variables is the
// only mutation primitive; there is no read-modify-write interface (§9).
type Store interface {
	// CreateTask creates a new task in Working with empty variables,
	// owned by ownerID.
	CreateTask(ctx context.Context, ownerID string) (taskID string, err error)

	// GetTask returns a consistent snapshot. Fails with a NOT_FOUND
	// *api.Error if taskID is unknown.
	GetTask(ctx context.Context, taskID string) (*api.Task, error)

	// SetVariables atomically merges patch into the task's variables.
	// Fails with FORBIDDEN if ownerID mismatches, TERMINAL if the task
	// is not Working. No partial patch is ever observable.
	SetVariables(ctx context.Context, taskID, ownerID string, patch map[string]api.Value) error

	// GetVariables returns a snapshot of the task's variables. Reads
	// need not be linearizable with concurrent writes but must never
	// return a torn patch.
	GetVariables(ctx context.Context, taskID string) (map[string]api.Value, error)

	// Cancel transitions Working -> Cancelled.
	Cancel(ctx context.Context, taskID, ownerID string) error

	// CompleteWithResult transitions Working -> status (Completed or
	// Failed) and stores result under the reserved result key.
	// Idempotent with respect to retries carrying the same arguments.
	CompleteWithResult(ctx context.Context, taskID, ownerID string, status api.TaskStatus, result api.Value) error
}

const taskResultKey = "_workflow.task_result"
