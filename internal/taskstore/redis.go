package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mcpflow/internal/api"
	"mcpflow/pkg/logging"
)

// Redis is a durable Store backed by a Redis instance, grounded on
// goadesign-goa-ai's go-redis/v9 client usage. Each task is a Redis hash
// under key "task:<task_id>", with the whole task record (owner, status,
// variables) stored as a single JSON-encoded field "data" so SetVariables
// can read-modify-write it under a
// short-lived per-task lock key, serializing concurrent writers the same
// way Memory's mutex does.
type Redis struct {
	client *redis.Client
	// TTL is applied to the task hash; it doubles as the store's
	// retention policy. Zero means no expiry. The lock key has its own
	// fixed short expiry.
	TTL time.Duration
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

type redisTask struct {
	OwnerID   string                `json:"owner_id"`
	Status    api.TaskStatus        `json:"status"`
	Variables map[string]api.Value  `json:"variables"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func taskKey(taskID string) string { return "task:" + taskID }
func lockKey(taskID string) string { return "task:" + taskID + ":lock" }

func (r *Redis) CreateTask(ctx context.Context, ownerID string) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	t := redisTask{
		OwnerID:   ownerID,
		Status:    api.TaskWorking,
		Variables: make(map[string]api.Value),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.write(ctx, id, t); err != nil {
		return "", api.NewInternalError(err)
	}
	logging.Debug("TaskStore", "created redis task %s for owner %s", logging.TruncateID(id), ownerID)
	return id, nil
}

func (r *Redis) GetTask(ctx context.Context, taskID string) (*api.Task, error) {
	t, err := r.read(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &api.Task{
		TaskID:    taskID,
		OwnerID:   t.OwnerID,
		Status:    t.Status,
		Variables: t.Variables,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}, nil
}

func (r *Redis) SetVariables(ctx context.Context, taskID, ownerID string, patch map[string]api.Value) error {
	return r.withLock(ctx, taskID, func() error {
		t, err := r.read(ctx, taskID)
		if err != nil {
			return err
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
		return r.write(ctx, taskID, *t)
	})
}

func (r *Redis) GetVariables(ctx context.Context, taskID string) (map[string]api.Value, error) {
	t, err := r.read(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return t.Variables, nil
}

func (r *Redis) Cancel(ctx context.Context, taskID, ownerID string) error {
	return r.transitionTerminal(ctx, taskID, ownerID, api.TaskCancelled, nil)
}

func (r *Redis) CompleteWithResult(ctx context.Context, taskID, ownerID string, status api.TaskStatus, result api.Value) error {
	return r.transitionTerminal(ctx, taskID, ownerID, status, result)
}

func (r *Redis) transitionTerminal(ctx context.Context, taskID, ownerID string, status api.TaskStatus, result api.Value) error {
	return r.withLock(ctx, taskID, func() error {
		t, err := r.read(ctx, taskID)
		if err != nil {
			return err
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
		return r.write(ctx, taskID, *t)
	})
}

func (r *Redis) read(ctx context.Context, taskID string) (*redisTask, error) {
	raw, err := r.client.HGet(ctx, taskKey(taskID), "data").Result()
	if err == redis.Nil {
		return nil, api.NewNotFoundError("task", taskID)
	}
	if err != nil {
		return nil, api.NewInternalError(err)
	}
	var t redisTask
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, api.NewInternalError(err)
	}
	return &t, nil
}

func (r *Redis) write(ctx context.Context, taskID string, t redisTask) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	key := taskKey(taskID)
	if err := r.client.HSet(ctx, key, "data", data).Err(); err != nil {
		return err
	}
	if r.TTL > 0 {
		r.client.Expire(ctx, key, r.TTL)
	}
	return nil
}

// withLock serializes fn against other callers mutating the same task,
// using a short-TTL SETNX-style lock key so a crashed holder cannot wedge
// the task forever.
func (r *Redis) withLock(ctx context.Context, taskID string, fn func() error) error {
	key := lockKey(taskID)
	const lockTTL = 5 * time.Second
	const retryDelay = 10 * time.Millisecond
	const maxAttempts = 200

	for attempt := 0; attempt < maxAttempts; attempt++ {
		ok, err := r.client.SetNX(ctx, key, 1, lockTTL).Result()
		if err != nil {
			return api.NewInternalError(err)
		}
		if ok {
			defer r.client.Del(ctx, key)
			return fn()
		}
		select {
		case <-ctx.Done():
			return api.NewInternalError(ctx.Err())
		case <-time.After(retryDelay):
		}
	}
	return api.NewInternalError(fmt.Errorf("timed out acquiring lock for task %s", taskID))
}
