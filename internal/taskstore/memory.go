package taskstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mcpflow/internal/api"
	"mcpflow/pkg/logging"
)

// Memory is a mutex-guarded, single-process Store. Every task's state
// lives behind one lock so SetVariables is trivially serializable —
// following the in-memory cache pattern of muster's
// internal/workflow/execution_storage.go.
type Memory struct {
	mu    sync.Mutex
	tasks map[string]*api.Task
}

// NewMemory creates an empty in-memory task store.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*api.Task)}
}

func (m *Memory) CreateTask(ctx context.Context, ownerID string) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[id] = &api.Task{
		TaskID:    id,
		OwnerID:   ownerID,
		Status:    api.TaskWorking,
		Variables: make(map[string]api.Value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	logging.Debug("TaskStore", "created task %s for owner %s", logging.TruncateID(id), ownerID)
	return id, nil
}

func (m *Memory) GetTask(ctx context.Context, taskID string) (*api.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, api.NewNotFoundError("task", taskID)
	}
	return cloneTask(t), nil
}

func (m *Memory) SetVariables(ctx context.Context, taskID, ownerID string, patch map[string]api.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return api.NewNotFoundError("task", taskID)
	}
	if t.OwnerID != ownerID {
		return api.NewForbiddenError("task")
	}
	if t.Status.Terminal() {
		return api.NewTerminalError(taskID)
	}

	for k, v := range patch {
		t.Variables[k] = v
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) GetVariables(ctx context.Context, taskID string) (map[string]api.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return nil, api.NewNotFoundError("task", taskID)
	}
	return cloneVariables(t.Variables), nil
}

func (m *Memory) Cancel(ctx context.Context, taskID, ownerID string) error {
	return m.transitionTerminal(taskID, ownerID, api.TaskCancelled, nil)
}

func (m *Memory) CompleteWithResult(ctx context.Context, taskID, ownerID string, status api.TaskStatus, result api.Value) error {
	return m.transitionTerminal(taskID, ownerID, status, result)
}

// transitionTerminal implements both Cancel and CompleteWithResult:
// idempotent with respect to retries carrying the same arguments, since a
// task already in the target terminal state with the same owner is a
// no-op rather than an error.
func (m *Memory) transitionTerminal(taskID, ownerID string, status api.TaskStatus, result api.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return api.NewNotFoundError("task", taskID)
	}
	if t.OwnerID != ownerID {
		return api.NewForbiddenError("task")
	}
	if t.Status.Terminal() {
		if t.Status == status {
			return nil
		}
		return api.NewTerminalError(taskID)
	}

	t.Status = status
	if result != nil {
		t.Variables[taskResultKey] = result
	}
	t.UpdatedAt = time.Now()
	logging.Audit(logging.AuditEvent{
		Action:  "task_transition",
		Outcome: "success",
		Target:  string(status),
	})
	return nil
}

func cloneTask(t *api.Task) *api.Task {
	clone := *t
	clone.Variables = cloneVariables(t.Variables)
	return &clone
}

func cloneVariables(vars map[string]api.Value) map[string]api.Value {
	out := make(map[string]api.Value, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
